package sensehat

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const stickName = "Raspberry Pi Sense HAT Joystick"

// Linux input subsystem constants (linux/input-event-codes.h).
const (
	evKey = 0x01

	keyEnter = 28
	keyUp    = 103
	keyLeft  = 105
	keyRight = 106
	keyDown  = 108
)

type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionLeft   Direction = "left"
	DirectionRight  Direction = "right"
	DirectionMiddle Direction = "middle"
)

type Action string

const (
	ActionReleased Action = "released"
	ActionPressed  Action = "pressed"
	ActionHeld     Action = "held"
)

// Event is a single joystick transition.
type Event struct {
	Timestamp time.Time
	Direction Direction
	Action    Action
}

// inputEvent mirrors struct input_event; its size follows the platform
// timeval.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

var directions = map[uint16]Direction{
	keyUp:    DirectionUp,
	keyDown:  DirectionDown,
	keyLeft:  DirectionLeft,
	keyRight: DirectionRight,
	keyEnter: DirectionMiddle,
}

var actions = map[int32]Action{
	0: ActionReleased,
	1: ActionPressed,
	2: ActionHeld,
}

// Stick reads joystick events from the evdev device.
type Stick struct {
	r io.ReadCloser
}

// OpenStick finds the joystick input device by name.
func OpenStick() (*Stick, error) {
	names, err := filepath.Glob("/sys/class/input/event*/device/name")
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		b, err := os.ReadFile(n)
		if err != nil || strings.TrimSpace(string(b)) != stickName {
			continue
		}
		event := filepath.Base(filepath.Dir(filepath.Dir(n)))
		dev := filepath.Join("/dev/input", event)
		f, err := os.Open(dev)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dev, err)
		}
		return NewStick(f), nil
	}
	return nil, fmt.Errorf("%w: no %q input device", ErrDeviceNotFound, stickName)
}

func NewStick(r io.ReadCloser) *Stick {
	return &Stick{r: r}
}

// WaitForEvent blocks until the next joystick key event. Cancelling ctx
// closes the device, after which the Stick can not be used again.
func (s *Stick) WaitForEvent(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.r.Close() })
	defer stop()

	for {
		var ev inputEvent
		if err := binary.Read(s.r, binary.LittleEndian, &ev); err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, fmt.Errorf("read joystick: %w", err)
		}
		if ev.Type != evKey {
			continue
		}
		dir, ok := directions[ev.Code]
		if !ok {
			continue
		}
		act, ok := actions[ev.Value]
		if !ok {
			continue
		}
		return Event{
			Timestamp: time.Unix(ev.Time.Unix()),
			Direction: dir,
			Action:    act,
		}, nil
	}
}

func (s *Stick) Close() error {
	return s.r.Close()
}
