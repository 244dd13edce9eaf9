// Driver to read read the MICS6814 via an ads1015 ADC
//
// Reference driver: https://github.com/pimoroni/enviroplus-python/blob/master/library/enviroplus/gas.py
package mics6814

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/rubiojr/go-pienviro/enviro"
)

const (
	supplyVolts = 3.3
	loadOhms    = 56000
)

type adcPin interface {
	Read() (analog.Sample, error)
	Halt() error
}

type Device struct {
	oxPin     adcPin
	redPin    adcPin
	nh3Pin    adcPin
	heaterPin gpio.PinIO
	bus       i2c.BusCloser
}

// Readings are sensing resistances in ohms.
type Readings struct {
	Oxidising float64
	Reducing  float64
	NH3       float64
}

// Fields names the readings for telemetry and the HTTP API.
func (r Readings) Fields() []enviro.Field {
	return []enviro.Field{
		{Key: "oxidising", Value: r.Oxidising},
		{Key: "reducing", Value: r.Reducing},
		{Key: "nh3", Value: r.NH3},
	}
}

type Opts struct {
	I2cAddress uint16
	HeaterPin  string
}

var DefaultOpts = Opts{
	I2cAddress: 0x49,
	// https://pinout.xyz/pinout/enviro_plus
	HeaterPin: "GPIO24",
}

func New() (*Device, error) {
	return NewWithOpts(DefaultOpts)
}

func NewWithOpts(opts Opts) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mics6814: host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("mics6814: open i2c: %w", err)
	}

	dev := &Device{bus: bus}
	if dev.heaterPin = gpioreg.ByName(opts.HeaterPin); dev.heaterPin == nil {
		bus.Close()
		return nil, fmt.Errorf("mics6814: unknown heater pin %q", opts.HeaterPin)
	}
	if err := dev.heaterPin.Out(gpio.High); err != nil {
		bus.Close()
		return nil, err
	}

	dopts := ads1x15.DefaultOpts
	dopts.I2cAddress = opts.I2cAddress
	adc, err := ads1x15.NewADS1015(bus, &dopts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("mics6814: ads1015: %w", err)
	}

	channels := []struct {
		ch  ads1x15.Channel
		pin *adcPin
	}{
		{ads1x15.Channel0, &dev.oxPin},
		{ads1x15.Channel1, &dev.redPin},
		{ads1x15.Channel2, &dev.nh3Pin},
	}
	for _, c := range channels {
		p, err := adc.PinForChannel(c.ch, 1*physic.Volt, 1*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("mics6814: channel %d: %w", c.ch, err)
		}
		*c.pin = p
	}

	return dev, nil
}

// Read samples the three sensing elements.
func (dev *Device) Read() (Readings, error) {
	var r Readings
	var err error
	if r.Oxidising, err = readPin(dev.oxPin); err != nil {
		return Readings{}, fmt.Errorf("oxidising: %w", err)
	}
	if r.Reducing, err = readPin(dev.redPin); err != nil {
		return Readings{}, fmt.Errorf("reducing: %w", err)
	}
	if r.NH3, err = readPin(dev.nh3Pin); err != nil {
		return Readings{}, fmt.Errorf("nh3: %w", err)
	}
	return r, nil
}

// ReadFields is Read shaped for enviro.NewAuxPoller.
func (dev *Device) ReadFields(context.Context) ([]enviro.Field, error) {
	r, err := dev.Read()
	if err != nil {
		return nil, err
	}
	return r.Fields(), nil
}

// Close stops the ADC, turns the heater off and releases the bus.
func (dev *Device) Close() error {
	var errs []error
	for _, p := range []adcPin{dev.oxPin, dev.redPin, dev.nh3Pin} {
		if p != nil {
			errs = append(errs, p.Halt())
		}
	}
	if dev.heaterPin != nil {
		errs = append(errs, dev.heaterPin.Out(gpio.Low))
	}
	if dev.bus != nil {
		errs = append(errs, dev.bus.Close())
	}
	return errors.Join(errs...)
}

func readPin(pin adcPin) (float64, error) {
	reading, err := pin.Read()
	if err != nil {
		return 0, err
	}
	return resistance(float64(reading.V) / float64(physic.Volt)), nil
}

// resistance converts the divider output voltage to the sensor resistance.
func resistance(v float64) float64 {
	return v * loadOhms / (supplyVolts - v)
}
