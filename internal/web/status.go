package web

import (
	"sync/atomic"
	"time"

	"sonar-ng/internal/display"
)

// FrameSource reports the last frame drawn on the display.
// *display.Recorder satisfies it.
type FrameSource interface {
	Last() (lines []display.TextLine, presented uint64)
}

type Status struct {
	startUnixNano int64
	pipeline      atomic.Value // map[string]any
	frames        FrameSource
}

func NewStatus(frames FrameSource) *Status {
	s := &Status{frames: frames}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.pipeline.Store(map[string]any{})
	return s
}

// SetPipeline records the static pipeline settings shown by /api/status.
func (s *Status) SetPipeline(info map[string]any) {
	if info != nil {
		s.pipeline.Store(info)
	}
}

type StatusSnapshot struct {
	Service         string             `json:"service"`
	NowUTC          string             `json:"now_utc"`
	UptimeSec       int64              `json:"uptime_sec"`
	Pipeline        map[string]any     `json:"pipeline"`
	FramesPresented uint64             `json:"frames_presented"`
	Frame           []display.TextLine `json:"frame"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "sonar-ng",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Pipeline:  s.pipeline.Load().(map[string]any),
		Frame:     []display.TextLine{},
	}
	if s.frames != nil {
		lines, n := s.frames.Last()
		snap.FramesPresented = n
		if lines != nil {
			snap.Frame = lines
		}
	}
	return snap
}
