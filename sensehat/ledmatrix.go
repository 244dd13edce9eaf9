package sensehat

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	Width  = 8
	Height = 8

	fbName = "RPi-Sense FB"

	// Gamma ioctl understood by the rpisense-fb kernel driver.
	fbIOResetGamma = 0xf102
	gammaDefault   = 0
	gammaLow       = 1
)

type frameBuffer interface {
	io.WriterAt
	io.Closer
}

// LEDMatrix drives the 8x8 RGB565 framebuffer.
type LEDMatrix struct {
	mu       sync.Mutex
	fb       frameBuffer
	rotation int
}

// OpenLEDMatrix locates the Sense HAT framebuffer device by name.
func OpenLEDMatrix() (*LEDMatrix, error) {
	names, err := filepath.Glob("/sys/class/graphics/fb*/name")
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		b, err := os.ReadFile(n)
		if err != nil || strings.TrimSpace(string(b)) != fbName {
			continue
		}
		dev := filepath.Join("/dev", filepath.Base(filepath.Dir(n)))
		f, err := os.OpenFile(dev, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dev, err)
		}
		return NewLEDMatrix(f), nil
	}
	return nil, fmt.Errorf("%w: no %q framebuffer", ErrDeviceNotFound, fbName)
}

func NewLEDMatrix(fb frameBuffer) *LEDMatrix {
	return &LEDMatrix{fb: fb}
}

// SetRotation accepts 0, 90, 180 or 270 degrees clockwise.
func (m *LEDMatrix) SetRotation(deg int) error {
	switch deg {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("invalid rotation %d (allowed: 0, 90, 180, 270)", deg)
	}
	m.mu.Lock()
	m.rotation = deg
	m.mu.Unlock()
	return nil
}

// SetLowLight switches the driver gamma table. It is a no-op when the
// framebuffer is not backed by a device file.
func (m *LEDMatrix) SetLowLight(on bool) error {
	f, ok := m.fb.(interface{ Fd() uintptr })
	if !ok {
		return nil
	}
	v := gammaDefault
	if on {
		v = gammaLow
	}
	if err := unix.IoctlSetInt(int(f.Fd()), fbIOResetGamma, v); err != nil {
		return fmt.Errorf("set gamma: %w", err)
	}
	return nil
}

// SetPixels writes a full frame given in row-major order as seen with no
// rotation applied.
func (m *LEDMatrix) SetPixels(px *[Width * Height]color.RGBA) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, Width*Height*2)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			dx, dy := rotate(x, y, m.rotation)
			v := rgb565(px[y*Width+x])
			i := (dy*Width + dx) * 2
			buf[i] = byte(v)
			buf[i+1] = byte(v >> 8)
		}
	}
	if _, err := m.fb.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write framebuffer: %w", err)
	}
	return nil
}

// Clear fills the whole matrix with c.
func (m *LEDMatrix) Clear(c color.RGBA) error {
	var px [Width * Height]color.RGBA
	for i := range px {
		px[i] = c
	}
	return m.SetPixels(&px)
}

func (m *LEDMatrix) Close() error {
	return m.fb.Close()
}

func rotate(x, y, deg int) (int, int) {
	switch deg {
	case 90:
		return Width - 1 - y, x
	case 180:
		return Width - 1 - x, Height - 1 - y
	case 270:
		return y, Height - 1 - x
	}
	return x, y
}

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}
