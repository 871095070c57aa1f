// Package pipe holds the bounded queues and the binary signal that connect the
// edge handler and the ranging tasks.
package pipe

import (
	"context"
	"time"
)

// Queue is a fixed-capacity FIFO. Order of successfully enqueued items is
// preserved; a full queue never grows.
type Queue[T any] struct {
	ch chan T
}

func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

func (q *Queue[T]) Cap() int { return cap(q.ch) }

func (q *Queue[T]) Len() int { return len(q.ch) }

// TrySend enqueues v without blocking. It reports false when the queue is
// full, in which case v is discarded and existing items are untouched.
// Safe to call from the edge handler.
func (q *Queue[T]) TrySend(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// SendTimeout waits up to d for space. It reports false if the queue stayed
// full for the whole wait or ctx was cancelled.
func (q *Queue[T]) SendTimeout(ctx context.Context, v T, d time.Duration) bool {
	if q.TrySend(v) {
		return true
	}
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case q.ch <- v:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// RecvTimeout waits up to d for an item. ok is false on timeout or when ctx
// is cancelled.
func (q *Queue[T]) RecvTimeout(ctx context.Context, d time.Duration) (v T, ok bool) {
	select {
	case v = <-q.ch:
		return v, true
	default:
	}
	if d <= 0 {
		return v, false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case v = <-q.ch:
		return v, true
	case <-t.C:
		return v, false
	case <-ctx.Done():
		return v, false
	}
}

// Recv blocks until an item is available or ctx is done.
func (q *Queue[T]) Recv(ctx context.Context) (v T, err error) {
	select {
	case v = <-q.ch:
		return v, nil
	case <-ctx.Done():
		return v, ctx.Err()
	}
}
