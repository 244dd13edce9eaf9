package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// ST HTS221 humidity and temperature sensor.

const (
	HTS221Address = 0x5f

	hts221WhoAmI     = 0xbc
	hts221CtrlReg1   = 0x20
	hts221InitData   = 0x85 // PD=1, BDU=1, ODR=1Hz
	hts221OutputReg  = 0x28 // HUMIDITY_OUT_L..TEMP_OUT_H
	hts221CalibStart = 0x30 // H0_rH_x2..T1_OUT_H
	hts221CalibLen   = 16
)

// HTS221 converts raw ADC counts using the factory calibration stored on
// the chip.
type HTS221 struct {
	device *i2c.Dev

	h0rH, h1rH     float64
	t0degC, t1degC float64
	h0t0Out        float64
	h1t0Out        float64
	t0Out, t1Out   float64
}

// NewHTS221 powers the sensor on and loads its calibration.
func NewHTS221(bus i2c.Bus) (*HTS221, error) {
	s := &HTS221{device: &i2c.Dev{Addr: HTS221Address, Bus: bus}}

	if err := checkWhoAmI(s.device, hts221WhoAmI); err != nil {
		return nil, err
	}
	if err := setRegister(s.device, hts221CtrlReg1, hts221InitData); err != nil {
		return nil, err
	}

	cal, err := getRegisters(s.device, hts221CalibStart, hts221CalibLen)
	if err != nil {
		return nil, fmt.Errorf("hts221 calibration: %w", err)
	}
	s.h0rH = float64(cal[0]) / 2
	s.h1rH = float64(cal[1]) / 2
	msb := cal[5]
	s.t0degC = float64(uint16(cal[2])|uint16(msb&0x03)<<8) / 8
	s.t1degC = float64(uint16(cal[3])|uint16(msb&0x0c)<<6) / 8
	s.h0t0Out = float64(signed16(cal[6], cal[7]))
	s.h1t0Out = float64(signed16(cal[10], cal[11]))
	s.t0Out = float64(signed16(cal[12], cal[13]))
	s.t1Out = float64(signed16(cal[14], cal[15]))

	if s.h1t0Out == s.h0t0Out || s.t1Out == s.t0Out {
		return nil, fmt.Errorf("hts221 calibration: degenerate coefficients")
	}
	return s, nil
}

// Sense returns relative humidity in percent and temperature in degC.
func (s *HTS221) Sense() (humidity, temperature float64, err error) {
	out, err := getRegisters(s.device, hts221OutputReg, 4)
	if err != nil {
		return 0, 0, fmt.Errorf("hts221: %w", err)
	}
	hOut := float64(signed16(out[0], out[1]))
	tOut := float64(signed16(out[2], out[3]))

	humidity = s.h0rH + (hOut-s.h0t0Out)*(s.h1rH-s.h0rH)/(s.h1t0Out-s.h0t0Out)
	temperature = s.t0degC + (tOut-s.t0Out)*(s.t1degC-s.t0degC)/(s.t1Out-s.t0Out)
	return humidity, temperature, nil
}
