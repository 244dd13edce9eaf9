// Conversions between the units the Sense HAT sensors report in and the
// units shown on screen and served over HTTP.
package units

const (
	inHgPerMillibar = 0.02953

	// Empirical divisor for the HAT self-heating correction, see
	// https://github.com/initialstate/wunderground-sensehat/wiki/Part-3.-Sense-HAT-Temperature-Correction
	calibrationFactor = 1.556
)

// CelsiusToFahrenheit converts degC to degF.
func CelsiusToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}

// MillibarToInHg converts millibar (hPa) to inches of mercury.
func MillibarToInHg(mbar float64) float64 {
	return mbar * inHgPerMillibar
}

// CalibrateFahrenheit removes the bias the CPU heat adds to the HAT
// temperature sensor. Both arguments and the result are in degF.
func CalibrateFahrenheit(raw, cpu float64) float64 {
	return raw - (cpu-raw)/calibrationFactor
}
