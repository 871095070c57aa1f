package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"sonar-ng/internal/echo"
	"sonar-ng/internal/pipe"
	"sonar-ng/internal/ranging"
)

type fixedTarget struct {
	cm float64
	ok bool
}

func (f fixedTarget) DistanceAt(time.Duration) (float64, bool) { return f.cm, f.ok }

type manualClock struct{ us uint64 }

func (c *manualClock) NowMicros() uint64 { return c.us }

type edgeRec struct {
	e  echo.Edge
	ts uint64
}

func stubSleep(t *testing.T) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func TestWidthFor_InvertsDistance(t *testing.T) {
	for _, cm := range []float64{4, 9.98, 100, 250.5, 400} {
		w := WidthFor(cm)
		back := float64(ranging.FromPulseWidth(w))
		if math.Abs(back-cm) > 0.01 {
			t.Fatalf("WidthFor(%v)=%d maps back to %v", cm, w, back)
		}
	}
	if WidthFor(-3) != 0 {
		t.Fatalf("negative distance should give zero width")
	}
}

func TestEcho_RespondEmitsRiseThenFall(t *testing.T) {
	stubSleep(t)
	var got []edgeRec
	clk := &manualClock{us: 1_000}
	e := NewEcho(EchoConfig{}, fixedTarget{cm: 100, ok: true}, clk, func(edge echo.Edge, ts uint64) {
		got = append(got, edgeRec{edge, ts})
	})

	e.respond(0)
	if len(got) != 2 || got[0].e != echo.Rising || got[1].e != echo.Falling {
		t.Fatalf("edges=%+v", got)
	}
	if w := got[1].ts - got[0].ts; w != uint64(WidthFor(100)) {
		t.Fatalf("width=%d want %d", w, WidthFor(100))
	}
}

func TestEcho_SilentTargetEmitsNothing(t *testing.T) {
	stubSleep(t)
	n := 0
	e := NewEcho(EchoConfig{}, fixedTarget{}, &manualClock{}, func(echo.Edge, uint64) { n++ })
	e.respond(0)
	if n != 0 {
		t.Fatalf("silent target emitted %d edges", n)
	}
}

func TestEcho_CapsWidth(t *testing.T) {
	stubSleep(t)
	var got []edgeRec
	e := NewEcho(EchoConfig{MaxWidth: 10 * time.Millisecond}, fixedTarget{cm: 1000, ok: true}, &manualClock{}, func(edge echo.Edge, ts uint64) {
		got = append(got, edgeRec{edge, ts})
	})
	e.respond(0)
	if len(got) != 2 || got[1].ts-got[0].ts != 10_000 {
		t.Fatalf("edges=%+v want 10000us pulse", got)
	}
}

func TestEcho_DrivesTimerEndToEnd(t *testing.T) {
	stubSleep(t)
	q := pipe.NewQueue[echo.PulseWidth](32)
	clk := &manualClock{us: 42}
	tm := echo.NewTimer(clk, q)
	e := NewEcho(EchoConfig{}, fixedTarget{cm: 9.98, ok: true}, clk, tm.HandleEdgeAt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Fire()
	w, ok := q.RecvTimeout(ctx, 2*time.Second)
	if !ok {
		t.Fatalf("no pulse width produced")
	}
	if w != WidthFor(9.98) {
		t.Fatalf("width=%d want %d", w, WidthFor(9.98))
	}
}

func TestEcho_FireNeverBlocks(t *testing.T) {
	e := NewEcho(EchoConfig{}, fixedTarget{}, nil, func(echo.Edge, uint64) {})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Fire()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Fire blocked without a running echo loop")
	}
}
