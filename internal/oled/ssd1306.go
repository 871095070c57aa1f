// Package oled drives an SSD1306 monochrome OLED over I2C and renders text
// with tinyfont.
package oled

import (
	"fmt"
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"sonar-ng/internal/i2c"
)

const (
	DefaultAddress = 0x3C

	ctrlCmd  = 0x00
	ctrlData = 0x40

	// Rows from the top of a glyph cell to the baseline for TinySZ8pt7b.
	textAscent int16 = 7
)

// writer is the single I2C operation the panel needs.
type writer interface {
	Write(p []byte) error
}

type Config struct {
	Width  int16
	Height int16
}

// Device is an SSD1306 panel with a local framebuffer. Drawing only touches
// the framebuffer; Present/Display pushes it to the panel.
type Device struct {
	bus    writer
	width  int16
	height int16
	buf    []byte
	font   tinyfont.Fonter
}

func New(dev *i2c.Dev, cfg Config) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("oled: dev is nil")
	}
	return newWithBus(dev, cfg)
}

func newWithBus(bus writer, cfg Config) (*Device, error) {
	if cfg.Width == 0 {
		cfg.Width = 128
	}
	if cfg.Height == 0 {
		cfg.Height = 32
	}
	if cfg.Width <= 0 || cfg.Width > 128 {
		return nil, fmt.Errorf("oled: width %d out of range (1..128)", cfg.Width)
	}
	if cfg.Height != 32 && cfg.Height != 64 {
		return nil, fmt.Errorf("oled: height %d unsupported (32 or 64)", cfg.Height)
	}
	return &Device{
		bus:    bus,
		width:  cfg.Width,
		height: cfg.Height,
		buf:    make([]byte, int(cfg.Width)*int(cfg.Height)/8),
		font:   &proggy.TinySZ8pt7b,
	}, nil
}

func (d *Device) initSequence() []byte {
	comPins := byte(0x02)
	if d.height == 64 {
		comPins = 0x12
	}
	return []byte{
		0xAE,                     // display off
		0xD5, 0x80,               // clock divide
		0xA8, byte(d.height - 1), // multiplex
		0xD3, 0x00,               // offset
		0x40,                     // start line 0
		0x8D, 0x14,               // charge pump on
		0x20, 0x00,               // horizontal addressing
		0xA1,                     // segment remap
		0xC8,                     // COM scan descending
		0xDA, comPins,            // COM pin layout
		0x81, 0x8F,               // contrast
		0xD9, 0xF1,               // pre-charge
		0xDB, 0x40,               // VCOMH
		0xA4,                     // resume from RAM
		0xA6,                     // normal, not inverted
		0xAF,                     // display on
	}
}

// Init configures the panel and blanks it.
func (d *Device) Init() error {
	if err := d.command(d.initSequence()...); err != nil {
		return fmt.Errorf("oled: init: %w", err)
	}
	d.Clear()
	return d.Display()
}

func (d *Device) command(cmds ...byte) error {
	return d.bus.Write(append([]byte{ctrlCmd}, cmds...))
}

// Size, SetPixel and Display implement tinygo's drivers.Displayer.

func (d *Device) Size() (x, y int16) { return d.width, d.height }

func (d *Device) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return
	}
	i := int(x) + int(y/8)*int(d.width)
	bit := byte(1) << uint(y%8)
	if c.R|c.G|c.B != 0 {
		d.buf[i] |= bit
	} else {
		d.buf[i] &^= bit
	}
}

func (d *Device) Pixel(x, y int16) bool {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return false
	}
	return d.buf[int(x)+int(y/8)*int(d.width)]&(1<<uint(y%8)) != 0
}

// Display flushes the framebuffer one page (8 rows) per write.
func (d *Device) Display() error {
	pages := byte(d.height/8 - 1)
	if err := d.command(0x21, 0, byte(d.width-1), 0x22, 0, pages); err != nil {
		return fmt.Errorf("oled: address window: %w", err)
	}
	w := int(d.width)
	chunk := make([]byte, 1+w)
	chunk[0] = ctrlData
	for off := 0; off < len(d.buf); off += w {
		copy(chunk[1:], d.buf[off:off+w])
		if err := d.bus.Write(chunk); err != nil {
			return fmt.Errorf("oled: page %d: %w", off/w, err)
		}
	}
	return nil
}

// Clear blanks the framebuffer.
func (d *Device) Clear() {
	for i := range d.buf {
		d.buf[i] = 0
	}
}

// DrawText writes text with its glyph cell's top-left at (x, y), each font
// pixel drawn as a scale x scale block.
func (d *Device) DrawText(x, y int16, scale int, text string) {
	if text == "" {
		return
	}
	if scale < 1 {
		scale = 1
	}
	s := int16(scale)
	target := &scaled{dev: d, scale: s, ox: x, oy: y}
	tinyfont.WriteLine(target, d.font, 0, textAscent, text, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
}

func (d *Device) Present() error {
	return d.Display()
}

// scaled maps font-space pixels onto the device, offset and magnified.
type scaled struct {
	dev    *Device
	scale  int16
	ox, oy int16
}

func (s *scaled) Size() (x, y int16) {
	w, h := s.dev.Size()
	return (w - s.ox) / s.scale, (h - s.oy) / s.scale
}

func (s *scaled) SetPixel(x, y int16, c color.RGBA) {
	for dy := int16(0); dy < s.scale; dy++ {
		for dx := int16(0); dx < s.scale; dx++ {
			s.dev.SetPixel(s.ox+x*s.scale+dx, s.oy+y*s.scale+dy, c)
		}
	}
}

func (s *scaled) Display() error { return nil }
