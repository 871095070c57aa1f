// Package gpio drives the sensor's trigger line and watches its echo line
// through the Linux GPIO character device.
package gpio

import (
	"fmt"
	"strconv"
	"strings"
)

// Bias selects the echo line's internal pull.
type Bias string

const (
	BiasAsIs     Bias = "as-is"
	BiasDisabled Bias = "disabled"
	BiasPullDown Bias = "pull-down"
	BiasPullUp   Bias = "pull-up"
)

func ParseBias(s string) (Bias, error) {
	switch b := Bias(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BiasAsIs, nil
	case BiasAsIs, BiasDisabled, BiasPullDown, BiasPullUp:
		return b, nil
	default:
		return "", fmt.Errorf("gpio: unknown bias %q", s)
	}
}

// lineName normalizes a configured line. Bare numbers are BCM offsets and map
// to the "GPIOn" names the Pi kernel exposes.
func lineName(line string) string {
	line = strings.TrimSpace(line)
	if n, err := strconv.Atoi(line); err == nil && n >= 0 {
		return fmt.Sprintf("GPIO%d", n)
	}
	return line
}
