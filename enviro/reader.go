package enviro

import (
	"context"
	"fmt"

	"github.com/rubiojr/go-pienviro/units"
)

// Sensor is a hardware backend reporting raw values: degC, percent
// relative humidity and millibar.
type Sensor interface {
	Temperature() (float64, error)
	Humidity() (float64, error)
	Pressure() (float64, error)
}

// CPUSensor reports the SoC temperature in degC.
type CPUSensor interface {
	Celsius(ctx context.Context) (float64, error)
}

// Reader turns raw sensor values into display units.
type Reader struct {
	sensor Sensor
	cpu    CPUSensor
}

// NewReader returns a Reader over sensor. When cpu is not nil every
// temperature read is corrected for the HAT self-heating bias.
func NewReader(sensor Sensor, cpu CPUSensor) *Reader {
	return &Reader{sensor: sensor, cpu: cpu}
}

// Calibrated reports whether temperature calibration is enabled.
func (r *Reader) Calibrated() bool {
	return r.cpu != nil
}

// ReadTemperature returns the temperature in degF.
func (r *Reader) ReadTemperature(ctx context.Context) (float64, error) {
	c, err := r.sensor.Temperature()
	if err != nil {
		return 0, err
	}
	raw := units.CelsiusToFahrenheit(c)
	if r.cpu == nil {
		return raw, nil
	}
	cpu, err := r.cpu.Celsius(ctx)
	if err != nil {
		return 0, fmt.Errorf("calibration: %w", err)
	}
	return units.CalibrateFahrenheit(raw, units.CelsiusToFahrenheit(cpu)), nil
}

// ReadHumidity returns relative humidity in percent.
func (r *Reader) ReadHumidity(context.Context) (float64, error) {
	return r.sensor.Humidity()
}

// ReadPressure returns the pressure in inHg.
func (r *Reader) ReadPressure(context.Context) (float64, error) {
	mbar, err := r.sensor.Pressure()
	if err != nil {
		return 0, err
	}
	return units.MillibarToInHg(mbar), nil
}

// Read dispatches to the reader for q.
func (r *Reader) Read(ctx context.Context, q Quantity) (float64, error) {
	switch q {
	case Temperature:
		return r.ReadTemperature(ctx)
	case Humidity:
		return r.ReadHumidity(ctx)
	case Pressure:
		return r.ReadPressure(ctx)
	}
	return 0, fmt.Errorf("unknown quantity %d", int(q))
}
