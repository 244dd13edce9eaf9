// Package beacon scans for Bluetooth LE iBeacon advertisements.
package beacon

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/fatih/color"
)

const (
	appleCompanyID = 0x004c
	ibeaconType    = 0x02
	ibeaconLength  = 0x15
)

// Beacon is one iBeacon seen during a scan.
type Beacon struct {
	Address string
	UUID    string
	Major   uint16
	Minor   uint16
	TxPower int8
	RSSI    int16
}

func (b Beacon) String() string {
	return fmt.Sprintf("Beacon: address:%s uuid:%s major:%d minor:%d txpower:%d rssi:%d",
		b.Address, b.UUID, b.Major, b.Minor, b.TxPower, b.RSSI)
}

// ParseIBeacon decodes Apple manufacturer data carrying an iBeacon frame:
// type 0x02, length 0x15, a 16 byte proximity UUID, big endian major and
// minor, and the calibrated tx power at 1 m.
func ParseIBeacon(companyID uint16, data []byte) (Beacon, bool) {
	if companyID != appleCompanyID || len(data) < 2+ibeaconLength {
		return Beacon{}, false
	}
	if data[0] != ibeaconType || data[1] != ibeaconLength {
		return Beacon{}, false
	}
	p := data[2:]
	return Beacon{
		UUID:    formatUUID(p[:16]),
		Major:   binary.BigEndian.Uint16(p[16:18]),
		Minor:   binary.BigEndian.Uint16(p[18:20]),
		TxPower: int8(p[20]),
	}, true
}

func formatUUID(b []byte) string {
	s := hex.EncodeToString(b)
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}

// Print writes one line per beacon followed by the completion banner.
func Print(w io.Writer, beacons []Beacon) {
	addr := color.New(color.FgCyan).SprintFunc()
	for _, b := range beacons {
		fmt.Fprintf(w, "Beacon: address:%s uuid:%s major:%d minor:%d txpower:%d rssi:%d\n",
			addr(b.Address), b.UUID, b.Major, b.Minor, b.TxPower, b.RSSI)
	}
	color.New(color.FgGreen, color.Bold).Fprintln(w, "*** Beacon scan complete! ***")
}
