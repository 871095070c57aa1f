package ranging

import (
	"context"
	"time"

	"sonar-ng/internal/echo"
	"sonar-ng/internal/pipe"
)

// Distance is in centimeters.
type Distance float64

const (
	// SoundCmPerUs is the speed of sound at ~20C.
	SoundCmPerUs = 0.0343

	MinValid Distance = 4
	MaxValid Distance = 400
)

// FromPulseWidth converts an echo round-trip time into a one-way distance.
func FromPulseWidth(w echo.PulseWidth) Distance {
	return Distance(float64(w) * SoundCmPerUs / 2)
}

// InRange reports whether d is within the sensor's operating range.
func (d Distance) InRange() bool {
	return d >= MinValid && d <= MaxValid
}

type Config struct {
	// RecvTimeout bounds each wait for a pulse width.
	RecvTimeout time.Duration
	// SendTimeout bounds each wait for space in the distance queue.
	SendTimeout time.Duration
}

// Task consumes pulse widths and publishes distances.
type Task struct {
	cfg   Config
	in    *pipe.Queue[echo.PulseWidth]
	out   *pipe.Queue[Distance]
	ready *pipe.Signal
}

func NewTask(cfg Config, in *pipe.Queue[echo.PulseWidth], out *pipe.Queue[Distance], ready *pipe.Signal) *Task {
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = 50 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Millisecond
	}
	return &Task{cfg: cfg, in: in, out: out, ready: ready}
}

// Run loops until ctx is cancelled.
func (t *Task) Run(ctx context.Context) {
	for ctx.Err() == nil {
		t.step(ctx)
	}
}

// step handles at most one pulse width. It returns false on receive timeout.
func (t *Task) step(ctx context.Context) bool {
	w, ok := t.in.RecvTimeout(ctx, t.cfg.RecvTimeout)
	if !ok {
		return false
	}
	_ = t.out.SendTimeout(ctx, FromPulseWidth(w), t.cfg.SendTimeout)
	// Raised whether or not the send landed; the display treats it as a poke.
	t.ready.Give()
	return true
}
