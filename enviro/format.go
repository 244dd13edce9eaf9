package enviro

import (
	"strconv"
	"strings"
)

// FormatValue renders v with the precision used on screen: one decimal
// for temperature and humidity, two for pressure.
func FormatValue(q Quantity, v float64) string {
	prec := 1
	if q == Pressure {
		prec = 2
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// FormatPlain renders v as the shortest decimal that round-trips, always
// keeping a fractional part ("72.0", not "72").
func FormatPlain(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
