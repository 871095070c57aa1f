package trigger

import (
	"context"
	"log"
	"time"

	"sonar-ng/internal/pipe"
)

var sleep = time.Sleep

// Pin is a digital output. go-gpiocdev's *Line satisfies it.
type Pin interface {
	SetValue(v int) error
}

type Config struct {
	// Period is the spacing between trigger pulses.
	Period time.Duration
	// Pulse is how long the line is held high. HC-SR04 needs at least 10us.
	Pulse time.Duration
}

// Task fires the sensor trigger once per period.
type Task struct {
	cfg   Config
	pin   Pin
	ready *pipe.Signal

	// OnFire, if set, runs after each pulse is driven low.
	OnFire func()

	failing bool
}

func NewTask(cfg Config, pin Pin, ready *pipe.Signal) *Task {
	if cfg.Period <= 0 {
		cfg.Period = 500 * time.Millisecond
	}
	if cfg.Pulse <= 0 {
		cfg.Pulse = 10 * time.Microsecond
	}
	return &Task{cfg: cfg, pin: pin, ready: ready}
}

// Run fires immediately, then once per period until ctx is cancelled.
func (t *Task) Run(ctx context.Context) {
	tk := time.NewTicker(t.cfg.Period)
	defer tk.Stop()

	for {
		t.fire()
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}
	}
}

func (t *Task) fire() {
	err := t.pin.SetValue(1)
	if err == nil {
		sleep(t.cfg.Pulse)
	}
	if lowErr := t.pin.SetValue(0); err == nil {
		err = lowErr
	}
	t.noteErr(err)

	if t.OnFire != nil {
		t.OnFire()
	}
	t.ready.Give()
}

// noteErr logs the first failure of a run and the recovery from it.
func (t *Task) noteErr(err error) {
	switch {
	case err != nil && !t.failing:
		t.failing = true
		log.Printf("trigger: pin write failed: %v", err)
	case err == nil && t.failing:
		t.failing = false
		log.Printf("trigger: pin write recovered")
	}
}
