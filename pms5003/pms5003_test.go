package pms5003

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/go-pienviro/enviro"
)

func encode(t *testing.T, f Frame) []byte {
	t.Helper()
	f.Length = frameLength
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, f))
	b := buf.Bytes()

	sum := uint16(magic1) + uint16(magic2)
	for _, c := range b[:frameLength] {
		sum += uint16(c)
	}
	binary.BigEndian.PutUint16(b[frameLength:], sum)
	return append([]byte{magic1, magic2}, b...)
}

func TestReadFrame(t *testing.T) {
	raw := encode(t, Frame{Pm10Std: 3, Pm25Std: 7, Pm100Std: 11, Particles3um: 900})
	// noise before the marker, including a lone 0x42
	r := bytes.NewReader(append([]byte{0x00, 0x42, 0x13}, raw...))

	f, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), f.Pm10Std)
	assert.Equal(t, uint16(7), f.Pm25Std)
	assert.Equal(t, uint16(11), f.Pm100Std)
	assert.Equal(t, uint16(900), f.Particles3um)
}

func TestReadFrameChecksum(t *testing.T) {
	raw := encode(t, Frame{Pm25Std: 7})
	raw[10]++
	_, err := ReadFrame(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrChecksum)
}

func TestReadFrameLength(t *testing.T) {
	raw := encode(t, Frame{})
	raw[3] = 20
	_, err := ReadFrame(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrLength)
}

func TestReadFrameShort(t *testing.T) {
	raw := encode(t, Frame{})
	_, err := ReadFrame(bytes.NewReader(raw[:12]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

type port struct{ *bytes.Reader }

func (port) Write(p []byte) (int, error) { return len(p), nil }
func (port) Close() error                { return nil }

func TestDeviceRun(t *testing.T) {
	var stream []byte
	stream = append(stream, encode(t, Frame{Pm25Std: 4})...)
	bad := encode(t, Frame{Pm25Std: 99})
	bad[5]++
	stream = append(stream, bad...)
	stream = append(stream, encode(t, Frame{Pm25Std: 9})...)

	dev := &Device{log: zerolog.Nop()}
	dev.open = func() (io.ReadWriteCloser, error) {
		return port{bytes.NewReader(stream)}, nil
	}

	_, _, err := dev.Latest()
	require.ErrorIs(t, err, ErrNoFrame)

	err = dev.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)

	f, at, err := dev.Latest()
	require.NoError(t, err)
	assert.False(t, at.IsZero())
	assert.Equal(t, uint16(9), f.Pm25Std)
}

func TestDeviceFields(t *testing.T) {
	dev := &Device{log: zerolog.Nop()}
	assert.Equal(t, "pm", dev.Name())
	_, _, err := dev.Fields()
	require.ErrorIs(t, err, ErrNoFrame)

	dev.open = func() (io.ReadWriteCloser, error) {
		return port{bytes.NewReader(encode(t, Frame{Pm10Std: 2, Pm25Std: 5, Pm100Std: 8}))}, nil
	}
	require.Error(t, dev.Run(context.Background()))

	fields, _, err := dev.Fields()
	require.NoError(t, err)
	assert.Equal(t, []enviro.Field{{Key: "pm1", Value: 2}, {Key: "pm25", Value: 5}, {Key: "pm10", Value: 8}}, fields)
}
