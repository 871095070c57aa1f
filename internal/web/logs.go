package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogBuffer keeps the most recent log lines for /api/logs. It is an
// io.Writer meant to sit next to stderr in log.SetOutput.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []string
	next    int
	full    bool
	partial []byte
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{ring: make([]string, maxLines)}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := append(b.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.pushLocked(string(data[:i]))
		data = data[i+1:]
	}
	// Keep an unterminated tail for the next write.
	b.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (b *LogBuffer) pushLocked(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	if b.full {
		b.dropped++
	}
	b.ring[b.next] = line
	b.next++
	if b.next == len(b.ring) {
		b.next = 0
		b.full = true
	}
}

// Snapshot returns up to tail of the newest lines, oldest first, and how many
// lines have been evicted so far.
func (b *LogBuffer) Snapshot(tail int) (lines []string, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	if b.full {
		n = len(b.ring)
	}
	if tail <= 0 {
		tail = 200
	}
	if tail > n {
		tail = n
	}
	lines = make([]string, 0, tail)
	for i := n - tail; i < n; i++ {
		idx := i
		if b.full {
			idx = (b.next + i) % len(b.ring)
		}
		lines = append(lines, b.ring[idx])
	}
	return lines, b.dropped
}

type LogsResponse struct {
	NowUTC  string   `json:"now_utc"`
	Dropped uint64   `json:"dropped"`
	Lines   []string `json:"lines"`
}

func (b *LogBuffer) Handler() http.Handler {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		tail := 200
		if s := strings.TrimSpace(r.URL.Query().Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 5000 {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}

		lines, dropped := b.Snapshot(tail)
		if strings.EqualFold(r.URL.Query().Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			if dropped > 0 {
				_, _ = fmt.Fprintf(w, "[dropped=%d]\n", dropped)
			}
			for _, line := range lines {
				_, _ = fmt.Fprintln(w, line)
			}
			return
		}
		writeJSON(w, LogsResponse{
			NowUTC:  time.Now().UTC().Format(time.RFC3339Nano),
			Dropped: dropped,
			Lines:   lines,
		})
	})
}
