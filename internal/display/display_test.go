package display

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sonar-ng/internal/echo"
	"sonar-ng/internal/pipe"
	"sonar-ng/internal/ranging"
)

func TestRender_Scenarios(t *testing.T) {
	cases := []struct {
		name   string
		d      ranging.Distance
		text   string
		barLen int
		valid  bool
	}{
		{name: "Near", d: ranging.FromPulseWidth(582), text: "Dist: 9.98 cm", barLen: 0, valid: true},
		{name: "MaxBoundary", d: 400, text: "Dist: 400.00 cm", barLen: 20, valid: true},
		{name: "MinBoundary", d: 4, text: "Dist: 4.00 cm", barLen: 0, valid: true},
		{name: "Mid", d: 202, text: "Dist: 202.00 cm", barLen: 10, valid: true},
		{name: "TooClose", d: ranging.FromPulseWidth(100), text: ErrorText, valid: false},
		{name: "JustPastMax", d: ranging.FromPulseWidth(23324), text: ErrorText, valid: false},
		{name: "Zero", d: 0, text: ErrorText, valid: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Render(tc.d)
			if f.Text != tc.text {
				t.Fatalf("text=%q want %q", f.Text, tc.text)
			}
			if f.Valid != tc.valid {
				t.Fatalf("valid=%v want %v", f.Valid, tc.valid)
			}
			if len(f.Bar) != tc.barLen {
				t.Fatalf("bar=%q len=%d want %d", f.Bar, len(f.Bar), tc.barLen)
			}
			if strings.Trim(f.Bar, string(BarMark)) != "" {
				t.Fatalf("bar contains non-marker characters: %q", f.Bar)
			}
		})
	}
}

func TestBarLength_MonotonicAndBounded(t *testing.T) {
	prev := -1
	for d := ranging.Distance(4); d <= 400; d += 0.25 {
		n := BarLength(d)
		if n < 0 || n > BarWidth {
			t.Fatalf("BarLength(%v)=%d out of [0,%d]", d, n, BarWidth)
		}
		if n < prev {
			t.Fatalf("BarLength(%v)=%d decreased from %d", d, n, prev)
		}
		prev = n
	}
	if BarLength(400) != BarWidth {
		t.Fatalf("BarLength(400)=%d want %d", BarLength(400), BarWidth)
	}
	if BarLength(-50) != 0 || BarLength(5000) != BarWidth {
		t.Fatalf("BarLength does not clamp")
	}
}

func TestRender_OutOfRangeNeverHasBar(t *testing.T) {
	for _, d := range []ranging.Distance{-1, 0, 3.999, 400.001, 1e6} {
		f := Render(d)
		if f.Text != ErrorText || f.Bar != "" || f.Valid {
			t.Fatalf("Render(%v)=%+v", d, f)
		}
	}
}

type callLog struct {
	calls      []string
	presentErr error
	initErr    error
}

func (c *callLog) Init() error { c.calls = append(c.calls, "init"); return c.initErr }
func (c *callLog) Clear()      { c.calls = append(c.calls, "clear") }
func (c *callLog) DrawText(x, y int16, scale int, text string) {
	c.calls = append(c.calls, "text:"+text)
}
func (c *callLog) Present() error { c.calls = append(c.calls, "present"); return c.presentErr }

func TestDraw_CallOrder(t *testing.T) {
	s := &callLog{}
	task := NewTask(s, nil, nil)

	if err := task.Draw(Render(202)); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	want := []string{"clear", "text:Dist: 202.00 cm", "text:----------", "present"}
	if strings.Join(s.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls=%v want %v", s.calls, want)
	}

	s.calls = nil
	_ = task.Draw(Render(1))
	want = []string{"clear", "text:" + ErrorText, "present"}
	if strings.Join(s.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls=%v want %v", s.calls, want)
	}
}

func TestTask_RendersAfterSignal(t *testing.T) {
	rec := NewRecorder()
	in := pipe.NewQueue[ranging.Distance](32)
	ready := pipe.NewSignal()
	task := NewTask(rec, in, ready)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	in.TrySend(ranging.FromPulseWidth(echo.PulseWidth(582)))
	ready.Give()

	lines := waitPresented(t, rec, 1)
	if len(lines) != 2 || lines[0].Text != "Dist: 9.98 cm" || lines[1].Text != "" || lines[1].Y != barY {
		t.Fatalf("lines=%+v", lines)
	}
}

func TestTask_SignalWithoutDistanceWaits(t *testing.T) {
	rec := NewRecorder()
	in := pipe.NewQueue[ranging.Distance](32)
	ready := pipe.NewSignal()
	task := NewTask(rec, in, ready)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()

	ready.Give()
	time.Sleep(20 * time.Millisecond)
	if _, n := rec.Last(); n != 0 {
		t.Fatalf("presented %d frames with no distance queued", n)
	}

	in.TrySend(1.5)
	lines := waitPresented(t, rec, 1)
	if len(lines) != 1 || lines[0].Text != ErrorText {
		t.Fatalf("lines=%+v", lines)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func waitPresented(t *testing.T, rec *Recorder, n uint64) []TextLine {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		lines, got := rec.Last()
		if got >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("presented=%d want >= %d", got, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	a := &callLog{}
	b := &callLog{presentErr: errors.New("bus error"), initErr: errors.New("no device")}
	m := Multi{a, b}

	if err := m.Init(); err == nil || !strings.Contains(err.Error(), "no device") {
		t.Fatalf("Init err=%v", err)
	}
	m.Clear()
	m.DrawText(0, 0, 1, "x")
	if err := m.Present(); err == nil || !strings.Contains(err.Error(), "bus error") {
		t.Fatalf("Present err=%v", err)
	}
	want := "init|clear|text:x|present"
	if strings.Join(a.calls, "|") != want || strings.Join(b.calls, "|") != want {
		t.Fatalf("a=%v b=%v", a.calls, b.calls)
	}
}
