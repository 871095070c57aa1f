//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux I2C backed by /dev/i2c-*. Transfers go through I2C_RDWR so a write
// and a read can share one transaction (repeated start).

const (
	flagRead  = 0x0001
	ioctlRdwr = 0x0707

	// MaxWrite is the largest single write accepted by Dev.Write. The
	// i2c_msg length field is 16 bits.
	MaxWrite = 0xFFFF
)

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened adapter such as /dev/i2c-1. Transfers on one Bus are not
// serialized; the display task is its only user.
type Bus struct {
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

func (b *Bus) Dev(addr uint16) *Dev {
	if b == nil {
		return nil
	}
	return &Dev{bus: b, addr: addr}
}

// Dev is a peripheral at a 7-bit address.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Addr() uint16 { return d.addr }

func (d *Dev) Write(p []byte) error {
	return d.transfer(p, nil)
}

func (d *Dev) WriteRead(w, r []byte) error {
	return d.transfer(w, r)
}

func (d *Dev) transfer(w, r []byte) error {
	if d == nil || d.bus == nil || d.bus.f == nil {
		return errors.New("i2c: device is nil")
	}
	if d.addr == 0 || d.addr > 0x7F {
		return fmt.Errorf("i2c: invalid addr 0x%X", d.addr)
	}
	if len(w) > MaxWrite || len(r) > MaxWrite {
		return fmt.Errorf("i2c: transfer too long (w=%d r=%d)", len(w), len(r))
	}

	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: d.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: d.addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	data := rdwrIoctlData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), uintptr(ioctlRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("i2c: %s addr 0x%02X: %w", d.bus.path, d.addr, errno)
	}
	return nil
}
