package screen

import (
	"image/color"
	"time"

	"golang.org/x/exp/constraints"
)

// Colors is the text colour palette cycled with the joystick.
var Colors = []color.RGBA{
	{0, 0, 0, 255},       // black
	{255, 255, 255, 255}, // white
	{255, 0, 0, 255},     // red
	{0, 255, 0, 255},     // lime
	{0, 0, 255, 255},     // blue
	{255, 255, 0, 255},   // yellow
	{0, 255, 255, 255},   // cyan
	{255, 0, 255, 255},   // magenta
}

var colorNames = []string{"black", "white", "red", "lime", "blue", "yellow", "cyan", "magenta"}

// ScrollSpeeds is the time each column stays on screen; a higher index
// scrolls faster.
var ScrollSpeeds = []time.Duration{
	150 * time.Millisecond,
	125 * time.Millisecond,
	100 * time.Millisecond,
	75 * time.Millisecond,
	50 * time.Millisecond,
}

// Rotations in degrees clockwise: power connector forward, right, back, left.
var Rotations = []int{0, 90, 180, 270}

const (
	DefaultColorIndex = 4 // blue
	DefaultSpeedIndex = 2
	DefaultRotation   = 270
)

// ColorName returns a human name for palette colours and an rgb() form
// for anything else.
func ColorName(c color.RGBA) string {
	for i, p := range Colors {
		if p == c {
			return colorNames[i]
		}
	}
	return rgbString(c)
}

// wrap maps v into [0, n).
func wrap[T constraints.Integer](v, n T) T {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// clamp limits v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
