// Package sim stands in for the ultrasonic sensor on machines without one.
package sim

import (
	"context"
	"math"
	"time"

	"sonar-ng/internal/echo"
	"sonar-ng/internal/ranging"
)

var sleep = time.Sleep

// Target reports what the sensor would see elapsed time after start. ok is
// false when nothing reflects (no echo pulse at all).
type Target interface {
	DistanceAt(elapsed time.Duration) (cm float64, ok bool)
}

// Sweep is a deterministic target oscillating between MinCm and MaxCm.
type Sweep struct {
	MinCm  float64
	MaxCm  float64
	Period time.Duration
}

func (s Sweep) DistanceAt(elapsed time.Duration) (float64, bool) {
	period := s.Period
	if period <= 0 {
		period = 20 * time.Second
	}
	lo, hi := s.MinCm, s.MaxCm
	if hi < lo {
		lo, hi = hi, lo
	}
	phase := float64(elapsed%period) / float64(period)
	// Cosine so the sweep starts at MinCm.
	mid := (lo + hi) / 2
	amp := (hi - lo) / 2
	return mid - amp*math.Cos(2*math.Pi*phase), true
}

// WidthFor is the echo pulse width the sensor produces for a target at cm.
func WidthFor(cm float64) echo.PulseWidth {
	if cm <= 0 {
		return 0
	}
	return echo.PulseWidth(math.Round(cm * 2 / ranging.SoundCmPerUs))
}

// EdgeFunc receives simulated edges; gpio.EdgeHandler and
// (*echo.Timer).HandleEdgeAt both fit.
type EdgeFunc func(e echo.Edge, tsUs uint64)

type EchoConfig struct {
	// Delay between the trigger and the echo line going high. HC-SR04
	// modules take roughly 450us to send their burst.
	Delay time.Duration
	// MaxWidth caps the pulse; longer echoes are reported as a timeout
	// pulse of this width, the way the sensor does.
	MaxWidth time.Duration
}

// Echo answers each trigger with a rise/fall pair derived from the target.
// Edges are emitted from the Run goroutine only, so the receiving timer sees
// a single serialized edge source.
type Echo struct {
	cfg    EchoConfig
	target Target
	clock  echo.Clock
	emit   EdgeFunc
	start  time.Time
	fires  chan struct{}
}

func NewEcho(cfg EchoConfig, target Target, clock echo.Clock, emit EdgeFunc) *Echo {
	if cfg.Delay <= 0 {
		cfg.Delay = 450 * time.Microsecond
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 38 * time.Millisecond
	}
	if clock == nil {
		clock = echo.ProcessClock()
	}
	return &Echo{
		cfg:    cfg,
		target: target,
		clock:  clock,
		emit:   emit,
		start:  time.Now(),
		fires:  make(chan struct{}, 1),
	}
}

// Fire requests one echo. It never blocks; a trigger that arrives while the
// previous echo is still pending is ignored, like the real module.
func (e *Echo) Fire() {
	select {
	case e.fires <- struct{}{}:
	default:
	}
}

func (e *Echo) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.fires:
			e.respond(time.Since(e.start))
		}
	}
}

func (e *Echo) respond(elapsed time.Duration) {
	cm, ok := e.target.DistanceAt(elapsed)
	if !ok {
		return
	}
	width := time.Duration(WidthFor(cm)) * time.Microsecond
	if width > e.cfg.MaxWidth {
		width = e.cfg.MaxWidth
	}

	sleep(e.cfg.Delay)
	rise := e.clock.NowMicros()
	e.emit(echo.Rising, rise)
	sleep(width)
	e.emit(echo.Falling, rise+uint64(width/time.Microsecond))
}
