// Package display turns distances into frames and pushes them to a surface.
package display

import (
	"fmt"
	"math"
	"strings"

	"sonar-ng/internal/ranging"
)

const (
	ErrorText = "Erro na leitura"

	BarWidth = 20
	BarMark  = '-'
)

// Frame is one rendered reading. Bar is empty for out-of-range readings.
type Frame struct {
	Text  string `json:"text"`
	Bar   string `json:"bar"`
	Valid bool   `json:"valid"`
}

// BarLength maps an in-range distance onto [0, BarWidth].
func BarLength(d ranging.Distance) int {
	span := float64(ranging.MaxValid - ranging.MinValid)
	n := int(math.Floor(float64(d-ranging.MinValid) / span * BarWidth))
	if n < 0 {
		return 0
	}
	if n > BarWidth {
		return BarWidth
	}
	return n
}

func Render(d ranging.Distance) Frame {
	if !d.InRange() {
		return Frame{Text: ErrorText}
	}
	return Frame{
		Text:  fmt.Sprintf("Dist: %.2f cm", float64(d)),
		Bar:   strings.Repeat(string(BarMark), BarLength(d)),
		Valid: true,
	}
}
