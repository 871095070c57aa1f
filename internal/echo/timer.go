package echo

import (
	"time"

	"sonar-ng/internal/pipe"
)

// PulseWidth is the echo high time in microseconds.
type PulseWidth uint32

type Edge int

const (
	Rising Edge = iota + 1
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "unknown"
	}
}

// Clock supplies monotonic microseconds since an arbitrary fixed origin.
type Clock interface {
	NowMicros() uint64
}

type sinceClock struct{ origin time.Time }

func (c sinceClock) NowMicros() uint64 {
	return uint64(time.Since(c.origin).Microseconds())
}

// ProcessClock counts microseconds from the moment it is created. It relies on
// the monotonic reading carried by time.Time.
func ProcessClock() Clock {
	return sinceClock{origin: time.Now()}
}

// Timer turns echo edges into pulse widths.
//
// HandleEdge and HandleEdgeAt are meant to be called from a single edge
// source (the GPIO event callback or the simulator) and never block. The rise
// timestamp is private; the only thing that leaves the Timer is a completed
// PulseWidth on the output queue.
type Timer struct {
	clock Clock
	out   *pipe.Queue[PulseWidth]

	timing bool
	riseUs uint64
}

func NewTimer(clock Clock, out *pipe.Queue[PulseWidth]) *Timer {
	if clock == nil {
		clock = ProcessClock()
	}
	return &Timer{clock: clock, out: out}
}

// HandleEdge timestamps e with the Timer's clock.
func (t *Timer) HandleEdge(e Edge) {
	t.HandleEdgeAt(e, t.clock.NowMicros())
}

// HandleEdgeAt records e as having happened at tsUs. A rise (re)starts the
// timing window; a fall closes it and enqueues the width, dropping it if the
// queue is full. A fall with no open window is ignored.
func (t *Timer) HandleEdgeAt(e Edge, tsUs uint64) {
	switch e {
	case Rising:
		t.riseUs = tsUs
		t.timing = true
	case Falling:
		if !t.timing {
			return
		}
		t.timing = false
		if tsUs < t.riseUs {
			return
		}
		width := tsUs - t.riseUs
		if width > uint64(^PulseWidth(0)) {
			return
		}
		_ = t.out.TrySend(PulseWidth(width))
	}
}
