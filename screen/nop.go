package screen

import (
	"context"
	"image/color"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// LogScreen stands in for a display on headless boards: it logs each
// message and takes as long as the LED matrix would to scroll it.
type LogScreen struct {
	log zerolog.Logger
}

func NewLogScreen(log zerolog.Logger) *LogScreen {
	return &LogScreen{log: log.With().Str("component", "logscreen").Logger()}
}

func (s *LogScreen) ShowMessage(ctx context.Context, text string, speed time.Duration, fg, bg color.RGBA) error {
	s.log.Info().Str("color", ColorName(fg)).Msg(text)
	// TomThumb advances four columns per glyph
	steps := 4*utf8.RuneCountInString(text) + 2*cols
	return sleep(ctx, time.Duration(steps)*speed)
}

func (s *LogScreen) Clear(c color.RGBA) error {
	s.log.Debug().Str("color", ColorName(c)).Msg("clear")
	return nil
}
