//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"sonar-ng/internal/echo"
)

const consumer = "sonar-ng"

// chipCandidates lists the chips to search for a line. An explicit chip is
// searched alone.
func chipCandidates(chip string) []string {
	if chip = strings.TrimSpace(chip); chip != "" {
		if !strings.HasPrefix(chip, "/") {
			chip = filepath.Join("/dev", chip)
		}
		return []string{chip}
	}
	// Pi 5 kernels may expose the header on gpiochip4.
	out := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			p := filepath.Join("/dev", e.Name())
			if p != out[0] && p != out[1] {
				out = append(out, p)
			}
		}
	}
	return out
}

func requestLine(chip, line string, opts ...gpiocdev.LineReqOption) (*gpiocdev.Chip, *gpiocdev.Line, error) {
	name := lineName(line)
	opts = append(opts, gpiocdev.WithConsumer(consumer))
	for _, path := range chipCandidates(chip) {
		c, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(name)
		if err != nil {
			_ = c.Close()
			continue
		}
		l, err := c.RequestLine(offset, opts...)
		if err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("gpio: request %s on %s: %w", name, path, err)
		}
		return c, l, nil
	}
	return nil, nil, fmt.Errorf("gpio: line %q not found (or busy)", name)
}

// Output is a requested output line. It satisfies trigger.Pin.
type Output struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// OpenOutput requests line as an output driven low.
func OpenOutput(chip, line string) (*Output, error) {
	c, l, err := requestLine(chip, line, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &Output{chip: c, line: l}, nil
}

func (o *Output) SetValue(v int) error {
	if o == nil || o.line == nil {
		return fmt.Errorf("gpio: output not open")
	}
	return o.line.SetValue(v)
}

func (o *Output) Close() error {
	if o == nil || o.line == nil {
		return nil
	}
	_ = o.line.SetValue(0)
	err := o.line.Close()
	o.line = nil
	if o.chip != nil {
		_ = o.chip.Close()
		o.chip = nil
	}
	return err
}

// EdgeHandler receives edges with their kernel timestamp in microseconds of
// CLOCK_MONOTONIC. It runs on the library's event goroutine and must not block.
type EdgeHandler func(e echo.Edge, tsUs uint64)

// Input is a requested input line reporting both edges.
type Input struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// WatchEdges requests line as an input and delivers rising and falling edges
// to h until Close.
func WatchEdges(chip, line string, bias Bias, h EdgeHandler) (*Input, error) {
	if h == nil {
		return nil, fmt.Errorf("gpio: edge handler is nil")
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			h(toEdge(evt.Type), uint64(evt.Timestamp/time.Microsecond))
		}),
	}
	switch bias {
	case BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	}
	c, l, err := requestLine(chip, line, opts...)
	if err != nil {
		return nil, err
	}
	return &Input{chip: c, line: l}, nil
}

func toEdge(t gpiocdev.LineEventType) echo.Edge {
	switch t {
	case gpiocdev.LineEventRisingEdge:
		return echo.Rising
	case gpiocdev.LineEventFallingEdge:
		return echo.Falling
	default:
		return 0
	}
}

func (i *Input) Close() error {
	if i == nil || i.line == nil {
		return nil
	}
	err := i.line.Close()
	i.line = nil
	if i.chip != nil {
		_ = i.chip.Close()
		i.chip = nil
	}
	return err
}

// MonotonicClock reads CLOCK_MONOTONIC, the same clock the kernel uses to
// stamp edge events.
type MonotonicClock struct{}

func (MonotonicClock) NowMicros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1_000
}
