package display

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	frames []*image.RGBA
}

func (r *recorder) send(img *image.RGBA) error {
	r.frames = append(r.frames, img)
	return nil
}

func TestFillScreen(t *testing.T) {
	rec := &recorder{}
	d := newDisplay(rec.send)
	red := color.RGBA{R: 255, A: 255}
	require.NoError(t, d.Clear(red))
	require.Len(t, rec.frames, 1)

	img := rec.frames[0]
	assert.Equal(t, image.Rect(0, 0, WIDTH, HEIGHT), img.Bounds())
	assert.Equal(t, red, img.RGBAAt(WIDTH-1, HEIGHT-1))
	assert.NoError(t, d.Close())
}

func TestShowMessageScrolls(t *testing.T) {
	rec := &recorder{}
	d := newDisplay(rec.send)
	fg := color.RGBA{G: 255, A: 255}
	bg := color.RGBA{A: 255}

	require.NoError(t, d.ShowMessage(context.Background(), "Hi", 0, fg, bg))
	// 160 px of lead-in plus 14 px of text, two pixels per step
	assert.Len(t, rec.frames, (HEIGHT+14)/scrollStep)

	lit := false
	for _, f := range rec.frames {
		img := f
		require.Equal(t, image.Rect(0, 0, WIDTH, HEIGHT), img.Bounds())
		for i := 0; i < len(img.Pix); i += 4 {
			if img.Pix[i+1] > 0 {
				lit = true
			}
		}
	}
	assert.True(t, lit)
}

func TestRotate90(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	c := color.RGBA{B: 255, A: 255}
	src.SetRGBA(0, 0, c)
	dst := rotate90(src)
	assert.Equal(t, image.Rect(0, 0, 2, 3), dst.Bounds())
	assert.Equal(t, c, dst.RGBAAt(1, 0))
}
