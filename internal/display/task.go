package display

import (
	"context"
	"log"

	"sonar-ng/internal/pipe"
	"sonar-ng/internal/ranging"
)

const (
	textY int16 = 0
	barY  int16 = 10
)

// Task waits for the ready signal, pulls one distance and draws it.
type Task struct {
	surface Surface
	in      *pipe.Queue[ranging.Distance]
	ready   *pipe.Signal
}

func NewTask(surface Surface, in *pipe.Queue[ranging.Distance], ready *pipe.Signal) *Task {
	return &Task{surface: surface, in: in, ready: ready}
}

// Run initializes the surface and renders until ctx is cancelled. A failing
// Init is logged; drawing is still attempted every frame.
func (t *Task) Run(ctx context.Context) {
	if err := t.surface.Init(); err != nil {
		log.Printf("display: init failed: %v", err)
	}
	for {
		if err := t.ready.Take(ctx); err != nil {
			return
		}
		d, err := t.in.Recv(ctx)
		if err != nil {
			return
		}
		if err := t.Draw(Render(d)); err != nil {
			log.Printf("display: present failed: %v", err)
		}
	}
}

// Draw clears the surface, draws f and presents it.
func (t *Task) Draw(f Frame) error {
	t.surface.Clear()
	t.surface.DrawText(0, textY, 1, f.Text)
	if f.Valid {
		t.surface.DrawText(0, barY, 1, f.Bar)
	}
	return t.surface.Present()
}
