package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	for _, c := range []float64{-40, 0, 21.5, 37, 100} {
		assert.InDelta(t, c*1.8+32, CelsiusToFahrenheit(c), 1e-9, "celsius %v", c)
	}
	assert.InDelta(t, -40.0, CelsiusToFahrenheit(-40), 1e-9)
	assert.InDelta(t, 212.0, CelsiusToFahrenheit(100), 1e-9)
}

func TestMillibarToInHg(t *testing.T) {
	for _, p := range []float64{0, 980, 1013.25, 1050} {
		assert.InDelta(t, p*0.02953, MillibarToInHg(p), 1e-9, "mbar %v", p)
	}
	assert.InDelta(t, 29.92, MillibarToInHg(1013.25), 0.01)
}

func TestCalibrateFahrenheit(t *testing.T) {
	// cpu == raw means no correction
	assert.InDelta(t, 80.0, CalibrateFahrenheit(80, 80), 1e-9)
	assert.InDelta(t, 90-(120-90)/1.556, CalibrateFahrenheit(90, 120), 1e-9)
}
