package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// ST LPS25H pressure and temperature sensor.

const (
	LPS25HAddress = 0x5c

	lps25hWhoAmI    = 0xbd
	lps25hCtrlReg1  = 0x20
	lps25hInitData  = 0x94 // PD=1, ODR=1Hz, BDU=1
	lps25hOutputReg = 0x28 // PRESS_OUT_XL..TEMP_OUT_H
)

type LPS25H struct {
	device *i2c.Dev
}

func NewLPS25H(bus i2c.Bus) (*LPS25H, error) {
	s := &LPS25H{device: &i2c.Dev{Addr: LPS25HAddress, Bus: bus}}
	if err := checkWhoAmI(s.device, lps25hWhoAmI); err != nil {
		return nil, err
	}
	if err := setRegister(s.device, lps25hCtrlReg1, lps25hInitData); err != nil {
		return nil, err
	}
	return s, nil
}

// Sense returns pressure in millibar and temperature in degC.
func (s *LPS25H) Sense() (pressure, temperature float64, err error) {
	out, err := getRegisters(s.device, lps25hOutputReg, 5)
	if err != nil {
		return 0, 0, fmt.Errorf("lps25h: %w", err)
	}
	// Scale factors from the datasheet.
	pressure = float64(signed24(out[0], out[1], out[2])) / 4096
	temperature = float64(signed16(out[3], out[4]))/480 + 42.5
	return pressure, temperature, nil
}
