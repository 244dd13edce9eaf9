package sensehat

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// regBus emulates register-addressed I²C chips.
type regBus struct {
	regs map[uint16]map[byte]byte
}

func (b *regBus) String() string                     { return "regbus" }
func (b *regBus) SetSpeed(f physic.Frequency) error  { return nil }
func (b *regBus) Close() error                       { return nil }
func (b *regBus) set(addr uint16, reg byte, v ...byte) {
	if b.regs[addr] == nil {
		b.regs[addr] = map[byte]byte{}
	}
	for i, x := range v {
		b.regs[addr][reg+byte(i)] = x
	}
}

func (b *regBus) Tx(addr uint16, w, r []byte) error {
	chip, ok := b.regs[addr]
	if !ok {
		return errors.New("nack")
	}
	if len(r) == 0 {
		chip[w[0]] = w[1]
		return nil
	}
	reg := w[0] &^ autoIncrement
	for i := range r {
		r[i] = chip[reg+byte(i)]
	}
	return nil
}

func le16(v int16) (byte, byte) {
	return byte(uint16(v)), byte(uint16(v) >> 8)
}

func newHTS221Bus() *regBus {
	b := &regBus{regs: map[uint16]map[byte]byte{}}
	b.set(HTS221Address, whoAmIReg, hts221WhoAmI)
	cal := make([]byte, hts221CalibLen)
	cal[0] = 40  // H0 20 %rH
	cal[1] = 160 // H1 80 %rH
	cal[2] = 80  // T0 10 degC
	cal[3] = 240 // T1 30 degC
	cal[10], cal[11] = le16(6000)
	cal[14], cal[15] = le16(1000)
	b.set(HTS221Address, hts221CalibStart, cal...)
	h0, h1 := le16(3000)
	t0, t1 := le16(500)
	b.set(HTS221Address, hts221OutputReg, h0, h1, t0, t1)
	return b
}

func TestHTS221Sense(t *testing.T) {
	bus := newHTS221Bus()
	s, err := NewHTS221(bus)
	require.NoError(t, err)
	assert.Equal(t, byte(hts221InitData), bus.regs[HTS221Address][hts221CtrlReg1])

	h, temp, err := s.Sense()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, h, 1e-9)
	assert.InDelta(t, 20.0, temp, 1e-9)
}

func TestHTS221TemperatureMSB(t *testing.T) {
	bus := newHTS221Bus()
	// T1 = (0x40 | 0b01<<8) / 8 = 40 degC
	bus.set(HTS221Address, hts221CalibStart+3, 0x40)
	bus.set(HTS221Address, hts221CalibStart+5, 0x04)
	s, err := NewHTS221(bus)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, s.t1degC, 1e-9)
}

func TestHTS221WrongChip(t *testing.T) {
	bus := newHTS221Bus()
	bus.set(HTS221Address, whoAmIReg, 0x00)
	_, err := NewHTS221(bus)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestLPS25HSense(t *testing.T) {
	tl, th := le16(-10800)
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: LPS25HAddress, W: []byte{whoAmIReg}, R: []byte{lps25hWhoAmI}},
			{Addr: LPS25HAddress, W: []byte{lps25hCtrlReg1, lps25hInitData}},
			// 1013.25 mbar * 4096 = 0x3f5400
			{Addr: LPS25HAddress, W: []byte{lps25hOutputReg | autoIncrement}, R: []byte{0x00, 0x54, 0x3f, tl, th}},
		},
		DontPanic: true,
	}
	s, err := NewLPS25H(bus)
	require.NoError(t, err)

	p, temp, err := s.Sense()
	require.NoError(t, err)
	assert.InDelta(t, 1013.25, p, 1e-9)
	assert.InDelta(t, 20.0, temp, 1e-9)
	require.NoError(t, bus.Close())
}

func TestSigned24(t *testing.T) {
	assert.Equal(t, int32(-1), signed24(0xff, 0xff, 0xff))
	assert.Equal(t, int32(0x123456), signed24(0x56, 0x34, 0x12))
}

type memFB struct {
	buf    []byte
	closed bool
}

func (f *memFB) WriteAt(p []byte, off int64) (int, error) {
	f.buf = append(f.buf[:0], p...)
	return len(p), nil
}

func (f *memFB) Close() error {
	f.closed = true
	return nil
}

func TestLEDMatrixClear(t *testing.T) {
	fb := &memFB{}
	m := NewLEDMatrix(fb)
	require.NoError(t, m.Clear(color.RGBA{R: 255, A: 255}))
	require.Len(t, fb.buf, 128)
	for i := 0; i < len(fb.buf); i += 2 {
		assert.Equal(t, uint16(0xf800), uint16(fb.buf[i])|uint16(fb.buf[i+1])<<8)
	}
	// not a device file, so gamma is left alone
	assert.NoError(t, m.SetLowLight(true))
	require.NoError(t, m.Close())
	assert.True(t, fb.closed)
}

func TestLEDMatrixRotation(t *testing.T) {
	fb := &memFB{}
	m := NewLEDMatrix(fb)
	var px [Width * Height]color.RGBA
	px[0] = color.RGBA{B: 255, A: 255} // top left

	require.NoError(t, m.SetPixels(&px))
	assert.Equal(t, byte(0x1f), fb.buf[0])

	require.NoError(t, m.SetRotation(180))
	require.NoError(t, m.SetPixels(&px))
	assert.Equal(t, byte(0x00), fb.buf[0])
	assert.Equal(t, byte(0x1f), fb.buf[126]) // bottom right

	assert.Error(t, m.SetRotation(45))
}

func TestRotateIsPermutation(t *testing.T) {
	for _, deg := range []int{0, 90, 180, 270} {
		seen := map[[2]int]bool{}
		for y := 0; y < Height; y++ {
			for x := 0; x < Width; x++ {
				dx, dy := rotate(x, y, deg)
				seen[[2]int{dx, dy}] = true
			}
		}
		assert.Len(t, seen, Width*Height, "rotation %d", deg)
	}
}

func writeEvents(t *testing.T, evs ...inputEvent) io.ReadCloser {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range evs {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, ev))
	}
	return io.NopCloser(&buf)
}

func TestStickWaitForEvent(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	tv := unix.NsecToTimeval(ts.UnixNano())
	s := NewStick(writeEvents(t,
		inputEvent{Time: tv, Type: 0, Code: 0, Value: 0}, // EV_SYN
		inputEvent{Time: tv, Type: evKey, Code: keyUp, Value: 1},
		inputEvent{Time: tv, Type: evKey, Code: keyEnter, Value: 2},
		inputEvent{Time: tv, Type: evKey, Code: 1, Value: 1}, // KEY_ESC
		inputEvent{Time: tv, Type: evKey, Code: keyRight, Value: 0},
	))

	ctx := context.Background()
	ev, err := s.WaitForEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, Event{Timestamp: ts, Direction: DirectionUp, Action: ActionPressed}, ev)

	ev, err = s.WaitForEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, DirectionMiddle, ev.Direction)
	assert.Equal(t, ActionHeld, ev.Action)

	ev, err = s.WaitForEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, DirectionRight, ev.Direction)
	assert.Equal(t, ActionReleased, ev.Action)

	_, err = s.WaitForEvent(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
