package screen

import (
	"fmt"
	"image/color"
	"sync"
	"time"
)

// Style is the mutable look of the scrolling text. Indices always stay
// inside their tables: the colour index wraps around, the speed index
// clamps at both ends.
type Style struct {
	mu         sync.RWMutex
	colors     []color.RGBA
	speeds     []time.Duration
	colorIdx   int
	speedIdx   int
	background color.RGBA
}

// StyleState is a point-in-time copy of a Style.
type StyleState struct {
	ColorIndex int
	SpeedIndex int
	Text       color.RGBA
	Background color.RGBA
	Speed      time.Duration
}

func (s StyleState) String() string {
	return fmt.Sprintf("text=%s background=%s speed=%s", ColorName(s.Text), ColorName(s.Background), s.Speed)
}

// NewStyle uses the default palette and speed tables.
func NewStyle() *Style {
	return NewStyleWith(Colors, ScrollSpeeds, DefaultColorIndex, DefaultSpeedIndex)
}

// NewStyleWith builds a Style over custom tables. Out of range start
// indices are clamped.
func NewStyleWith(colors []color.RGBA, speeds []time.Duration, colorIdx, speedIdx int) *Style {
	if len(colors) == 0 || len(speeds) == 0 {
		panic("screen: empty style table")
	}
	return &Style{
		colors:     colors,
		speeds:     speeds,
		colorIdx:   clamp(colorIdx, 0, len(colors)-1),
		speedIdx:   clamp(speedIdx, 0, len(speeds)-1),
		background: colors[0],
	}
}

func (s *Style) State() StyleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state()
}

func (s *Style) state() StyleState {
	return StyleState{
		ColorIndex: s.colorIdx,
		SpeedIndex: s.speedIdx,
		Text:       s.colors[s.colorIdx],
		Background: s.background,
		Speed:      s.speeds[s.speedIdx],
	}
}

func (s *Style) update(fn func()) StyleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return s.state()
}

// NextColor moves to the next colour, wrapping to the first.
func (s *Style) NextColor() StyleState {
	return s.update(func() { s.colorIdx = wrap(s.colorIdx+1, len(s.colors)) })
}

// PrevColor moves to the previous colour, wrapping to the last.
func (s *Style) PrevColor() StyleState {
	return s.update(func() { s.colorIdx = wrap(s.colorIdx-1, len(s.colors)) })
}

// Faster moves to the next speed, stopping at the fastest.
func (s *Style) Faster() StyleState {
	return s.update(func() { s.speedIdx = clamp(s.speedIdx+1, 0, len(s.speeds)-1) })
}

// Slower moves to the previous speed, stopping at the slowest.
func (s *Style) Slower() StyleState {
	return s.update(func() { s.speedIdx = clamp(s.speedIdx-1, 0, len(s.speeds)-1) })
}
