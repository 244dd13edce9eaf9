// Driver for the LTR559 light and proximity sensor
package ltr559

import (
	"context"
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/rubiojr/go-pienviro/enviro"
)

const DefaultAddress = 0x23

var (
	ch0Coeff = []int{17743, 42785, 5926, 0}
	ch1Coeff = []int{-11059, 19548, -1185, 0}
)

const (
	integrationTimeMs = 50.0
	gain              = 4.0
)

const (
	alsControl   = 0x80
	psControl    = 0x81
	psLED        = 0x82
	psNPulses    = 0x83
	psMeasRate   = 0x84
	alsMeasRate  = 0x85
	partID       = 0x86
	alsData      = 0x88
	alsPsStatus  = 0x8c
	psData       = 0x8d
	psThreshold  = 0x90
	psOffset     = 0x94
	alsThreshold = 0x97
)

// LTR559 keeps the last light and proximity values; the sensor only
// refreshes its data registers when a new measurement is ready.
type LTR559 struct {
	dev       *i2c.Dev
	bus       i2c.BusCloser
	lux       float64
	proximity uint16
}

// New opens the default I²C bus and configures the sensor.
func New() (*LTR559, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ltr559: host init: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("ltr559: open i2c: %w", err)
	}
	s, err := NewWithBus(bus, DefaultAddress)
	if err != nil {
		bus.Close()
		return nil, err
	}
	s.bus = bus
	return s, nil
}

// NewWithBus configures a sensor on an already open bus.
func NewWithBus(bus i2c.Bus, addr uint16) (*LTR559, error) {
	s := &LTR559{dev: &i2c.Dev{Addr: addr, Bus: bus}}
	setup := []struct {
		reg  byte
		data []byte
	}{
		{alsControl, []byte{0x02}},  // sw_reset=1
		{psLED, []byte{0x1b}},       // 50mA, duty 1.0, 30kHz
		{psNPulses, []byte{0x0f}},   // count 15
		{alsControl, []byte{0x09}},  // mode=active gain=4
		{psControl, []byte{0x23}},   // active, saturation indicator
		{psMeasRate, []byte{0x02}},  // 100ms
		{alsMeasRate, []byte{0x08}}, // repeat 50ms, integration 50ms
		{alsThreshold, []byte{0xff, 0xff, 0x00, 0x00}},
		{psThreshold, []byte{0xff, 0xff, 0x00, 0x00}},
		{psOffset, []byte{0x00, 0x00}},
	}
	for _, w := range setup {
		if err := s.setRegister(w.reg, w.data...); err != nil {
			return nil, fmt.Errorf("ltr559: init register %#x: %w", w.reg, err)
		}
	}
	return s, nil
}

// Close closes the i2c bus if New opened it.
func (s *LTR559) Close() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Close()
}

// Read returns the ambient light in lux and the raw proximity count.
func (s *LTR559) Read() (lux float64, proximity uint16, err error) {
	status, err := s.getRegister(alsPsStatus, 1)
	if err != nil {
		return 0, 0, err
	}
	psReady := status[0]&0x02 != 0 || status[0]&0x04 != 0
	alsReady := status[0]&0x08 != 0 || status[0]&0x04 != 0

	if psReady {
		b, err := s.getRegister(psData, 2)
		if err != nil {
			return 0, 0, err
		}
		s.proximity = binary.LittleEndian.Uint16(b) & 0x07ff
	}
	if alsReady {
		b, err := s.getRegister(alsData, 4)
		if err != nil {
			return 0, 0, err
		}
		ch1 := int(binary.LittleEndian.Uint16(b[0:2]))
		ch0 := int(binary.LittleEndian.Uint16(b[2:4]))
		s.lux = computeLux(ch0, ch1)
	}
	return s.lux, s.proximity, nil
}

// ReadFields is Read shaped for enviro.NewAuxPoller.
func (s *LTR559) ReadFields(context.Context) ([]enviro.Field, error) {
	lux, prox, err := s.Read()
	if err != nil {
		return nil, err
	}
	return []enviro.Field{
		{Key: "lux", Value: lux},
		{Key: "proximity", Value: float64(prox)},
	}, nil
}

func (s *LTR559) PartID() (byte, error) {
	b, err := s.getRegister(partID, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func computeLux(ch0, ch1 int) float64 {
	ratio := 101
	if ch0+ch1 > 0 {
		ratio = ch1 * 100 / (ch0 + ch1)
	}

	var idx int
	switch {
	case ratio < 45:
		idx = 0
	case ratio < 64:
		idx = 1
	case ratio < 85:
		idx = 2
	default:
		idx = 3
	}

	lux := float64(ch0*ch0Coeff[idx] - ch1*ch1Coeff[idx])
	lux /= integrationTimeMs / 100.0
	lux /= gain
	return lux / 10000.0
}

func (s *LTR559) setRegister(addr byte, data ...byte) error {
	return s.dev.Tx(append([]byte{addr}, data...), nil)
}

func (s *LTR559) getRegister(addr byte, count int) ([]byte, error) {
	read := make([]byte, count)
	if err := s.dev.Tx([]byte{addr}, read); err != nil {
		return nil, err
	}
	return read, nil
}
