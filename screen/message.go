package screen

import (
	"fmt"
	"image/color"

	"github.com/rubiojr/go-pienviro/enviro"
)

// Message renders the status line shown on the display, e.g.
// "Temp: 72.3 degF, Humidity: 41.2 %, Press: 29.92 inHg".
func Message(s enviro.Snapshot) string {
	return fmt.Sprintf("Temp: %s degF, Humidity: %s %%, Press: %s inHg",
		value(enviro.Temperature, s.Temperature),
		value(enviro.Humidity, s.Humidity),
		value(enviro.Pressure, s.Pressure),
	)
}

func value(q enviro.Quantity, r enviro.Reading) string {
	if !r.Valid() {
		return "--"
	}
	return enviro.FormatValue(q, r.Value)
}

func rgbString(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}
