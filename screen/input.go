package screen

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rubiojr/go-pienviro/sensehat"
)

// Joystick blocks until the next stick event.
type Joystick interface {
	WaitForEvent(ctx context.Context) (sensehat.Event, error)
}

// Input maps joystick presses to Style changes: up/down cycle the text
// colour, left/right change the scroll speed.
type Input struct {
	stick  Joystick
	style  *Style
	screen Screen
	log    zerolog.Logger
}

func NewInput(stick Joystick, style *Style, screen Screen, log zerolog.Logger) *Input {
	return &Input{
		stick:  stick,
		style:  style,
		screen: screen,
		log:    log.With().Str("component", "joystick").Logger(),
	}
}

// Run handles events until ctx is done or the device fails.
func (in *Input) Run(ctx context.Context) error {
	for {
		ev, err := in.stick.WaitForEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		in.Handle(ev)
	}
}

// Handle applies a single event. Only presses change the style.
func (in *Input) Handle(ev sensehat.Event) {
	in.log.Debug().
		Str("action", string(ev.Action)).
		Str("direction", string(ev.Direction)).
		Time("at", ev.Timestamp).
		Msg("Detected joystick event")

	if ev.Action != sensehat.ActionPressed {
		in.log.Debug().Msg("Ignoring event")
		return
	}

	var st StyleState
	switch ev.Direction {
	case sensehat.DirectionUp:
		st = in.style.NextColor()
	case sensehat.DirectionDown:
		st = in.style.PrevColor()
	case sensehat.DirectionLeft:
		st = in.style.Faster()
	case sensehat.DirectionRight:
		st = in.style.Slower()
	default:
		in.log.Info().Str("direction", string(ev.Direction)).Msg("Unrecognized direction")
		return
	}
	in.log.Info().
		Str("color", ColorName(st.Text)).
		Dur("speed", st.Speed).
		Msg("Screen style changed")

	// flash the new colour, the scrolling text overwrites it right away
	if err := in.screen.Clear(st.Text); err != nil {
		in.log.Error().Err(err).Msg("flash failed")
	}
}
