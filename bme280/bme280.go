// Thin wrapper around periph.io bmxx80, usable as an alternative to the
// Sense HAT sensors when a BME280 breakout is wired to the Pi.
package bme280

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

const DefaultAddress = 0x76

type sensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

type BME280 struct {
	bus    i2c.BusCloser
	device sensor
}

func New(addr uint16) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}

	device, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("bme280 at 0x%02x: %w", addr, err)
	}

	return &BME280{bus: bus, device: device}, nil
}

type Readings struct {
	Temperature physic.Temperature
	Pressure    physic.Pressure
	Humidity    physic.RelativeHumidity
}

func (dev *BME280) Read() (*Readings, error) {
	e := physic.Env{}
	if err := dev.device.Sense(&e); err != nil {
		return nil, err
	}

	return &Readings{
		Temperature: e.Temperature,
		Pressure:    e.Pressure,
		Humidity:    e.Humidity,
	}, nil
}

// Temperature in degC.
func (dev *BME280) Temperature() (float64, error) {
	r, err := dev.Read()
	if err != nil {
		return 0, err
	}
	return r.Temperature.Celsius(), nil
}

// Humidity in percent relative humidity.
func (dev *BME280) Humidity() (float64, error) {
	r, err := dev.Read()
	if err != nil {
		return 0, err
	}
	return float64(r.Humidity) / float64(physic.PercentRH), nil
}

// Pressure in millibar.
func (dev *BME280) Pressure() (float64, error) {
	r, err := dev.Read()
	if err != nil {
		return 0, err
	}
	return float64(r.Pressure) / float64(100*physic.Pascal), nil
}

func (dev *BME280) Close() error {
	if err := dev.device.Halt(); err != nil {
		return err
	}
	return dev.bus.Close()
}
