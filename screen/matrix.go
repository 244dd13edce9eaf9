package screen

import (
	"context"
	"image/color"
	"time"
	"unicode/utf8"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"

	"github.com/rubiojr/go-pienviro/sensehat"
)

const (
	rows = sensehat.Height
	cols = sensehat.Width

	// TomThumb glyphs are at most 5 pixels above the baseline and one below.
	baseline = 6
)

type frame = [cols * rows]color.RGBA

// PixelMatrix is an 8x8 RGB device such as sensehat.LEDMatrix.
type PixelMatrix interface {
	SetPixels(px *frame) error
	Clear(c color.RGBA) error
}

// Matrix scrolls text across an 8x8 LED matrix one column per step.
type Matrix struct {
	dev  PixelMatrix
	font tinyfont.Fonter
}

func NewMatrix(dev PixelMatrix) *Matrix {
	return &Matrix{dev: dev, font: &tinyfont.TomThumb}
}

// ShowMessage blocks for roughly (text columns + 8) * speed.
func (m *Matrix) ShowMessage(ctx context.Context, text string, speed time.Duration, fg, bg color.RGBA) error {
	strip := make([][rows]bool, 0, cols+8*len(text)+cols)
	strip = append(strip, make([][rows]bool, cols)...)
	strip = append(strip, rasterize(m.font, text)...)
	strip = append(strip, make([][rows]bool, cols)...)

	var px frame
	for off := 0; off+cols <= len(strip); off++ {
		for x := 0; x < cols; x++ {
			for y := 0; y < rows; y++ {
				c := bg
				if strip[off+x][y] {
					c = fg
				}
				px[y*cols+x] = c
			}
		}
		if err := m.dev.SetPixels(&px); err != nil {
			return err
		}
		if err := sleep(ctx, speed); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matrix) Clear(c color.RGBA) error {
	return m.dev.Clear(c)
}

// canvas collects glyph pixels as columns; it is the drawing target for
// tinyfont.
type canvas struct {
	cols  [][rows]bool
	width int
}

var _ drivers.Displayer = (*canvas)(nil)

func (c *canvas) Size() (x, y int16) {
	return int16(len(c.cols)), rows
}

func (c *canvas) SetPixel(x, y int16, _ color.RGBA) {
	if x < 0 || y < 0 || int(x) >= len(c.cols) || y >= rows {
		return
	}
	c.cols[x][y] = true
	if int(x)+1 > c.width {
		c.width = int(x) + 1
	}
}

func (c *canvas) Display() error {
	return nil
}

// rasterize renders text into columns, trimmed after the last lit one
// plus a single column of spacing.
func rasterize(font tinyfont.Fonter, text string) [][rows]bool {
	c := &canvas{cols: make([][rows]bool, 8*utf8.RuneCountInString(text)+cols)}
	tinyfont.WriteLine(c, font, 0, baseline, text, color.RGBA{255, 255, 255, 255})
	if c.width == 0 {
		return nil
	}
	return c.cols[:c.width+1]
}
