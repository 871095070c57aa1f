//go:build !linux

package gpio

import (
	"fmt"

	"sonar-ng/internal/echo"
)

type Output struct{}

func OpenOutput(chip, line string) (*Output, error) {
	return nil, fmt.Errorf("gpio: unsupported OS (need linux)")
}

func (o *Output) SetValue(v int) error { return fmt.Errorf("gpio: unsupported OS") }
func (o *Output) Close() error         { return nil }

type EdgeHandler func(e echo.Edge, tsUs uint64)

type Input struct{}

func WatchEdges(chip, line string, bias Bias, h EdgeHandler) (*Input, error) {
	return nil, fmt.Errorf("gpio: unsupported OS (need linux)")
}

func (i *Input) Close() error { return nil }

// MonotonicClock falls back to the process clock off Linux.
type MonotonicClock struct{}

var processClock = echo.ProcessClock()

func (MonotonicClock) NowMicros() uint64 { return processClock.NowMicros() }
