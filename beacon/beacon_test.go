package beacon

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ibeacon(major, minor uint16, tx int8) []byte {
	return []byte{
		0x02, 0x15,
		0xf7, 0x82, 0x6d, 0xa6, 0x4f, 0xa2, 0x4e, 0x98,
		0x80, 0x24, 0xbc, 0x5b, 0x71, 0xe0, 0x89, 0x3e,
		byte(major >> 8), byte(major), byte(minor >> 8), byte(minor),
		byte(tx),
	}
}

func TestParseIBeacon(t *testing.T) {
	b, ok := ParseIBeacon(0x004c, ibeacon(1, 258, -59))
	require.True(t, ok)
	assert.Equal(t, "f7826da6-4fa2-4e98-8024-bc5b71e0893e", b.UUID)
	assert.Equal(t, uint16(1), b.Major)
	assert.Equal(t, uint16(258), b.Minor)
	assert.Equal(t, int8(-59), b.TxPower)
}

func TestParseIBeaconRejects(t *testing.T) {
	tests := []struct {
		name    string
		company uint16
		data    []byte
	}{
		{"other company", 0x0059, ibeacon(1, 1, -59)},
		{"short", 0x004c, ibeacon(1, 1, -59)[:10]},
		{"wrong type", 0x004c, append([]byte{0x10, 0x15}, ibeacon(1, 1, -59)[2:]...)},
		{"wrong length", 0x004c, append([]byte{0x02, 0x14}, ibeacon(1, 1, -59)[2:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseIBeacon(tt.company, tt.data)
			assert.False(t, ok)
		})
	}
}

func TestCollector(t *testing.T) {
	c := newCollector()
	c.observe("AA:00", -70, 0x004c, ibeacon(1, 2, -59))
	c.observe("0B:00", -80, 0x004c, ibeacon(3, 4, -60))
	c.observe("AA:00", -65, 0x004c, ibeacon(1, 2, -59))
	c.observe("CC:00", -50, 0x0006, []byte{1, 2, 3})

	got := c.beacons()
	require.Len(t, got, 2)
	assert.Equal(t, "0B:00", got[0].Address)
	assert.Equal(t, "AA:00", got[1].Address)
	assert.Equal(t, int16(-65), got[1].RSSI)
}

func TestPrint(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	b, _ := ParseIBeacon(0x004c, ibeacon(1, 2, -59))
	b.Address, b.RSSI = "AA:BB:CC:DD:EE:FF", -70
	Print(&buf, []Beacon{b})

	want := "Beacon: address:AA:BB:CC:DD:EE:FF uuid:f7826da6-4fa2-4e98-8024-bc5b71e0893e major:1 minor:2 txpower:-59 rssi:-70\n" +
		"*** Beacon scan complete! ***\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, want[:len(want)-len("*** Beacon scan complete! ***\n")-1], b.String())
}
