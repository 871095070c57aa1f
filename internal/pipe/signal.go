package pipe

import "context"

// Signal is a binary, non-counting notification. Any number of Give calls
// before a Take collapse into one pending notification.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Give marks the signal pending. It never blocks.
func (s *Signal) Give() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Take waits for a pending notification and consumes it.
func (s *Signal) Take(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a Give is waiting to be taken.
func (s *Signal) Pending() bool {
	return len(s.ch) > 0
}
