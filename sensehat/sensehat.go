// Package sensehat talks to the Raspberry Pi Sense HAT: the HTS221 and
// LPS25H environment sensors on I²C, the 8x8 LED matrix framebuffer and
// the five-way joystick input device.
package sensehat

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Sensors reads temperature, humidity and pressure the same way the
// Python sense_hat library does: temperature comes from the humidity chip.
type Sensors struct {
	bus      i2c.BusCloser
	humidity *HTS221
	pressure *LPS25H
}

// Open initializes the host drivers and the first available I²C bus.
func Open() (*Sensors, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}

	s, err := NewSensors(bus)
	if err != nil {
		return nil, errors.Join(err, bus.Close())
	}
	return s, nil
}

// NewSensors probes both chips on an already opened bus. The bus is owned
// by the returned Sensors and closed by Close.
func NewSensors(bus i2c.BusCloser) (*Sensors, error) {
	hts, err := NewHTS221(bus)
	if err != nil {
		return nil, fmt.Errorf("hts221: %w", err)
	}
	lps, err := NewLPS25H(bus)
	if err != nil {
		return nil, fmt.Errorf("lps25h: %w", err)
	}
	return &Sensors{bus: bus, humidity: hts, pressure: lps}, nil
}

// Temperature in degC.
func (s *Sensors) Temperature() (float64, error) {
	_, t, err := s.humidity.Sense()
	return t, err
}

// Humidity in percent relative humidity.
func (s *Sensors) Humidity() (float64, error) {
	h, _, err := s.humidity.Sense()
	return h, err
}

// Pressure in millibar.
func (s *Sensors) Pressure() (float64, error) {
	p, _, err := s.pressure.Sense()
	return p, err
}

func (s *Sensors) Close() error {
	return s.bus.Close()
}
