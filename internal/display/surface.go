package display

import (
	"errors"
	"sync"
)

// Surface is the drawing target. Coordinates are pixels from the top-left.
type Surface interface {
	Init() error
	Clear()
	DrawText(x, y int16, scale int, text string)
	Present() error
}

// Multi fans every call out to each surface in order.
type Multi []Surface

func (m Multi) Init() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Init())
	}
	return errors.Join(errs...)
}

func (m Multi) Clear() {
	for _, s := range m {
		s.Clear()
	}
}

func (m Multi) DrawText(x, y int16, scale int, text string) {
	for _, s := range m {
		s.DrawText(x, y, scale, text)
	}
}

func (m Multi) Present() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Present())
	}
	return errors.Join(errs...)
}

// TextLine is one DrawText call.
type TextLine struct {
	X     int16  `json:"x"`
	Y     int16  `json:"y"`
	Scale int    `json:"scale"`
	Text  string `json:"text"`
}

// Recorder is a surface that keeps the last presented frame. It is safe for
// concurrent readers.
type Recorder struct {
	mu        sync.Mutex
	pending   []TextLine
	last      []TextLine
	presented uint64
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error { return nil }

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = r.pending[:0]
}

func (r *Recorder) DrawText(x, y int16, scale int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, TextLine{X: x, Y: y, Scale: scale, Text: text})
}

func (r *Recorder) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = append([]TextLine(nil), r.pending...)
	r.presented++
	return nil
}

// Last returns the lines of the last presented frame and how many frames
// have been presented.
func (r *Recorder) Last() (lines []TextLine, presented uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TextLine(nil), r.last...), r.presented
}
