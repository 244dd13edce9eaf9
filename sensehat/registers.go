package sensehat

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// ST sensors on the HAT auto-increment the register address on multi-byte
// reads only when the MSB of the sub-address is set.
const autoIncrement = 0x80

const whoAmIReg = 0x0f

// ErrDeviceNotFound is returned when a chip answers with an unexpected
// WHO_AM_I value.
var ErrDeviceNotFound = errors.New("sensehat: device not found")

func setRegister(dev *i2c.Dev, addr, value byte) error {
	if err := dev.Tx([]byte{addr, value}, nil); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", addr, err)
	}
	return nil
}

func getRegisters(dev *i2c.Dev, addr byte, count int) ([]byte, error) {
	read := make([]byte, count)
	if count > 1 {
		addr |= autoIncrement
	}
	if err := dev.Tx([]byte{addr}, read); err != nil {
		return nil, fmt.Errorf("read register 0x%02x: %w", addr&^autoIncrement, err)
	}
	return read, nil
}

func checkWhoAmI(dev *i2c.Dev, want byte) error {
	id, err := getRegisters(dev, whoAmIReg, 1)
	if err != nil {
		return err
	}
	if id[0] != want {
		return fmt.Errorf("%w: who_am_i at 0x%02x is 0x%02x, want 0x%02x", ErrDeviceNotFound, dev.Addr, id[0], want)
	}
	return nil
}

// signed16 decodes a little-endian two's complement register pair.
func signed16(lo, hi byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}

// signed24 decodes a little-endian 24 bit two's complement value.
func signed24(xl, l, h byte) int32 {
	v := int32(h)<<16 | int32(l)<<8 | int32(xl)
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}
