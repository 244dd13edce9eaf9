package telemetry

import (
	"strings"
	"time"

	"github.com/rubiojr/go-pienviro/enviro"
)

const measurement = "env_data"

// Field is an extra numeric value appended to a record.
type Field = enviro.Field

// Sample is what the publisher hands to every sink each cycle.
type Sample struct {
	Time     time.Time
	IP       string
	Snapshot enviro.Snapshot
	Extra    []Field
}

// Fields lists the values of s in record order. Quantities without a
// reading are left out.
func (s Sample) Fields() []Field {
	var fields []Field
	add := func(key string, r enviro.Reading) {
		if r.Valid() {
			fields = append(fields, Field{Key: key, Value: r.Value})
		}
	}
	add("temp", s.Snapshot.Temperature)
	add("humidity", s.Snapshot.Humidity)
	add("press", s.Snapshot.Pressure)
	return append(fields, s.Extra...)
}

// Record encodes s as "env_data[<ip>] temp=<t>,humidity=<h>,press=<p>".
// It returns "" when there is nothing to report.
func Record(s Sample) string {
	fields := s.Fields()
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(measurement)
	b.WriteByte('[')
	b.WriteString(s.IP)
	b.WriteString("] ")
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(enviro.FormatPlain(f.Value))
	}
	return b.String()
}
