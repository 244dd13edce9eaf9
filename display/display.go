// Package display drives the 0.96" ST7735 LCD found on the Enviro boards,
// usable as an alternative to the Sense HAT LED matrix.
package display

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/asssaf/st7735-go/st7735"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	WIDTH  int = 80
	HEIGHT int = 160

	// pixels moved per scroll step
	scrollStep = 2
)

type Display struct {
	p    spi.PortCloser
	dev  *st7735.Dev
	send func(img *image.RGBA) error
	face font.Face
}

// Init opens the panel on SPI0.1 with DC on GPIO9 and the backlight on
// GPIO12.
func Init() (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	if _, err := driverreg.Init(); err != nil {
		return nil, fmt.Errorf("driver init: %w", err)
	}

	p, err := spireg.Open("SPI0.1")
	if err != nil {
		return nil, fmt.Errorf("open SPI0.1: %w", err)
	}
	dev, err := st7735.New(p.(spi.Port), gpioreg.ByName("GPIO9"), nil, gpioreg.ByName("GPIO12"), &st7735.DefaultOpts)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("st7735: %w", err)
	}

	d := newDisplay(func(img *image.RGBA) error { return dev.DisplayImage(0, 0, img) })
	d.p = p
	d.dev = dev
	return d, nil
}

func newDisplay(send func(img *image.RGBA) error) *Display {
	return &Display{send: send, face: basicfont.Face7x13}
}

// ShowMessage scrolls text right to left across the long side of the
// panel, one step per speed.
func (d *Display) ShowMessage(ctx context.Context, text string, speed time.Duration, fg, bg color.RGBA) error {
	width := font.MeasureString(d.face, text).Ceil()
	for x := HEIGHT; x > -width; x -= scrollStep {
		if err := d.send(d.frame(text, x, fg, bg)); err != nil {
			return err
		}
		t := time.NewTimer(speed)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// frame draws text at horizontal offset x on a landscape canvas and
// returns it rotated to the panel's portrait orientation.
func (d *Display) frame(text string, x int, fg, bg color.RGBA) *image.RGBA {
	landscape := image.NewRGBA(image.Rect(0, 0, HEIGHT, WIDTH))
	draw.Draw(landscape, landscape.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	m := d.face.Metrics()
	baseline := (WIDTH + m.Ascent.Ceil() - m.Descent.Ceil()) / 2
	dr := font.Drawer{
		Dst:  landscape,
		Src:  image.NewUniform(fg),
		Face: d.face,
		Dot:  fixed.P(x, baseline),
	}
	dr.DrawString(text)
	return rotate90(landscape)
}

func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(b.Max.Y-1-y, x, src.RGBAAt(x, y))
		}
	}
	return dst
}

// Clear fills the panel with c.
func (d *Display) Clear(c color.RGBA) error {
	return d.FillScreen(c)
}

func (d *Display) FillScreen(c color.RGBA) error {
	img := image.NewRGBA(image.Rect(0, 0, WIDTH, HEIGHT))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return d.send(img)
}

// PowerOn the display
func (d *Display) PowerOn() error {
	if d.dev == nil {
		return nil
	}
	d.dev.SetBacklight(true)
	return nil
}

// PowerOff the display
func (d *Display) PowerOff() error {
	if d.dev == nil {
		return nil
	}
	d.dev.SetBacklight(false)
	return nil
}

func (d *Display) Close() error {
	if err := d.PowerOff(); err != nil {
		return err
	}
	if d.p == nil {
		return nil
	}
	return d.p.Close()
}
