// Package screen renders the environment status line and lets the
// joystick change how it looks.
package screen

import (
	"context"
	"image/color"
	"time"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/enviro"
)

// Screen is a display able to scroll a line of text. ShowMessage blocks
// until the text has scrolled past or ctx is done.
type Screen interface {
	ShowMessage(ctx context.Context, text string, speed time.Duration, fg, bg color.RGBA) error
	Clear(c color.RGBA) error
}

// Controller keeps the latest readings scrolling across a Screen.
type Controller struct {
	screen Screen
	style  *Style
	source func() enviro.Snapshot
	log    zerolog.Logger
}

func NewController(screen Screen, style *Style, source func() enviro.Snapshot, log zerolog.Logger) *Controller {
	return &Controller{
		screen: screen,
		style:  style,
		source: source,
		log:    log.With().Str("component", "screen").Logger(),
	}
}

// Run scrolls the status line until ctx is done. The scroll itself paces
// the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := Message(c.source())
		c.log.Debug().Str("message", msg).Msg("Screen message updated")

		st := c.style.State()
		if err := c.screen.ShowMessage(ctx, msg, st.Speed, st.Text, st.Background); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("show message failed")
			if err := sleep(ctx, time.Second); err != nil {
				return err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
