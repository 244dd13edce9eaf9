// Based on code from Mark Hansen:
//   https://github.com/mhansen/breathe/blob/master/breathe.go
//
// Pimoroni's driver used as a reference also:
//  https://github.com/pimoroni/pms5003-python
//
// Package pms5003 reads particulate matter concentrations from a Plantower
// PMS5003 sensor attached to the serial port.
//
// PMS5003 datasheet: http://www.aqmd.gov/docs/default-source/aq-spec/resources-page/plantower-pms5003-manual_v2-3.pdf
package pms5003

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/rubiojr/go-pienviro/enviro"
)

const (
	magic1 = 0x42 // :)
	magic2 = 0x4d

	frameLength = 28
	frameSize   = frameLength + 2

	DefaultSerialPort = "/dev/ttyAMA0"
	DefaultResetPin   = "GPIO27"
	DefaultEnablePin  = "GPIO22"
)

var (
	// ErrNoFrame is returned by Latest before the first valid frame arrives.
	ErrNoFrame  = fmt.Errorf("pms5003: %w", enviro.ErrNoReading)
	ErrChecksum = errors.New("pms5003: checksum mismatch")
	ErrLength   = errors.New("pms5003: unexpected frame length")
)

// Frame wraps an air quality packet, as documented in https://cdn-shop.adafruit.com/product-files/3686/plantower-pms5003-manual_v2-3.pdf
type Frame struct {
	Length         uint16
	Pm10Std        uint16
	Pm25Std        uint16
	Pm100Std       uint16
	Pm10Env        uint16
	Pm25Env        uint16
	Pm100Env       uint16
	Particles3um   uint16
	Particles5um   uint16
	Particles10um  uint16
	Particles25um  uint16
	Particles50um  uint16
	Particles100um uint16
	Unused         uint16
	Checksum       uint16
}

type Device struct {
	pinEnable, pinReset gpio.PinIO
	serialPort          string
	log                 zerolog.Logger
	open                func() (io.ReadWriteCloser, error)

	mu     sync.RWMutex
	last   Frame
	lastAt time.Time
}

// NewWithOpts configures a sensor on custom pins.
//
// https://pinout.xyz/pinout/enviro_plus#
//
// resetPin: module reset signal pin
// enablePin: enable/disable the module
// serialPort: usually /dev/ttyAMA0 on a Raspberry PI
func NewWithOpts(resetPin, enablePin, serialPort string, log zerolog.Logger) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("pms5003: host init: %w", err)
	}

	dev := &Device{serialPort: serialPort}
	dev.log = log.With().Str("device", "pms5003").Logger()
	dev.open = dev.openSerial

	if dev.pinEnable = gpioreg.ByName(enablePin); dev.pinEnable == nil {
		return nil, fmt.Errorf("pms5003: unknown enable pin %q", enablePin)
	}
	if err := dev.pinEnable.Out(gpio.High); err != nil {
		return nil, err
	}
	if dev.pinReset = gpioreg.ByName(resetPin); dev.pinReset == nil {
		return nil, fmt.Errorf("pms5003: unknown reset pin %q", resetPin)
	}
	if err := dev.pinReset.Out(gpio.High); err != nil {
		return nil, err
	}

	return dev, nil
}

// New device with sane default values for a PMS5003 wired like the
// Enviro+ board does it, on the given serial port.
func New(serialPort string, log zerolog.Logger) (*Device, error) {
	if serialPort == "" {
		serialPort = DefaultSerialPort
	}
	return NewWithOpts(DefaultResetPin, DefaultEnablePin, serialPort, log)
}

func (dev *Device) openSerial() (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              dev.serialPort,
		BaudRate:              9600,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		InterCharacterTimeout: 4,
	})
}

// Run reads frames from the serial port until ctx is cancelled, keeping the
// most recent valid one for Latest. Framing errors reset the module and
// reading resumes.
func (dev *Device) Run(ctx context.Context) error {
	rw, err := dev.open()
	if err != nil {
		return fmt.Errorf("pms5003: open %s: %w", dev.serialPort, err)
	}
	stop := context.AfterFunc(ctx, func() { rw.Close() })
	defer func() {
		if stop() {
			rw.Close()
		}
	}()

	dev.reset(rw)
	for {
		f, err := ReadFrame(rw)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("pms5003: serial port closed: %w", err)
		case errors.Is(err, ErrChecksum), errors.Is(err, ErrLength):
			dev.log.Debug().Err(err).Msg("ignoring frame")
			continue
		case err != nil:
			dev.log.Warn().Err(err).Msg("read failed, resetting sensor")
			if err := dev.reset(rw); err != nil {
				return err
			}
			continue
		}
		dev.log.Debug().Uint16("pm1", f.Pm10Std).Uint16("pm25", f.Pm25Std).Uint16("pm10", f.Pm100Std).Msg("frame")
		dev.mu.Lock()
		dev.last, dev.lastAt = f, time.Now()
		dev.mu.Unlock()
	}
}

// Latest returns the most recent valid frame and when it was read.
func (dev *Device) Latest() (Frame, time.Time, error) {
	dev.mu.RLock()
	defer dev.mu.RUnlock()
	if dev.lastAt.IsZero() {
		return Frame{}, time.Time{}, ErrNoFrame
	}
	return dev.last, dev.lastAt, nil
}

func (dev *Device) Name() string { return "pm" }

// Fields returns the standard particle concentrations of the latest frame
// in ug/m3 as pm1, pm25 and pm10.
func (dev *Device) Fields() ([]enviro.Field, time.Time, error) {
	f, at, err := dev.Latest()
	if err != nil {
		return nil, at, err
	}
	return []enviro.Field{
		{Key: "pm1", Value: float64(f.Pm10Std)},
		{Key: "pm25", Value: float64(f.Pm25Std)},
		{Key: "pm10", Value: float64(f.Pm100Std)},
	}, at, nil
}

// ReadFrame scans r for the start-of-frame marker and decodes the frame that
// follows it.
func ReadFrame(r io.Reader) (Frame, error) {
	if err := awaitMagic(r); err != nil {
		return Frame{}, err
	}
	buf := make([]byte, frameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, err
	}

	var f Frame
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, &f); err != nil {
		return Frame{}, err
	}
	if f.Length != frameLength {
		return Frame{}, fmt.Errorf("%w: %d", ErrLength, f.Length)
	}

	sum := uint16(magic1) + uint16(magic2)
	for _, b := range buf[:frameLength] {
		sum += uint16(b)
	}
	if sum != f.Checksum {
		return Frame{}, fmt.Errorf("%w: got %#04x want %#04x", ErrChecksum, sum, f.Checksum)
	}
	return f, nil
}

func awaitMagic(r io.Reader) error {
	b := make([]byte, 1)
	var prev byte
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return err
		}
		if prev == magic1 && b[0] == magic2 {
			return nil
		}
		prev = b[0]
	}
}

// Discards data written to the port but not transmitted,
// or data received but not read
// https://github.com/tarm/serial/blob/master/serial_linux.go
func flushSerial(rw io.ReadWriteCloser) error {
	f, ok := rw.(*os.File)
	if !ok {
		return nil
	}
	const TCFLSH = 0x540B
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		f.Fd(),
		uintptr(TCFLSH),
		uintptr(unix.TCIOFLUSH),
	)
	if errno == 0 {
		return nil
	}
	return errno
}

// reset the PMS5003 module
func (dev *Device) reset(rw io.ReadWriteCloser) error {
	if dev.pinReset == nil {
		return flushSerial(rw)
	}
	if err := dev.pinReset.Out(gpio.Low); err != nil {
		return err
	}

	if err := flushSerial(rw); err != nil {
		dev.log.Debug().Err(err).Msg("flush serial")
	}
	time.Sleep(100 * time.Millisecond)

	return dev.pinReset.Out(gpio.High)
}
