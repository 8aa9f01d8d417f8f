// Package packet parses and builds the addressed, commanded messages that
// travel inside a bus frame's payload.
package packet

import (
	"encoding/hex"
	"fmt"
)

// Address identifies a participant on the bus.
type Address byte

// Well-known bus addresses.
const (
	AddrNew           Address = 0x00 // unregistered charger post-boot
	AddrCharger       Address = 0x01 // assigned charger address
	AddrSmartGrid     Address = 0xA0 // observed, not driven
	AddrCP            Address = 0x80 // this ChargePoint actor
	AddrBroadcast     Address = 0xBC // all listeners
	AddrChargeStation Address = 0xFD // multi-socket station controller
)

// String renders the address the way a human would read it off the bus.
func (a Address) String() string {
	switch a {
	case AddrNew:
		return "new"
	case AddrCharger:
		return "charger"
	case AddrCP:
		return "CP"
	case AddrBroadcast:
		return "broadcast"
	case AddrSmartGrid:
		return "SmartGrid"
	case AddrChargeStation:
		return "ChargeStation"
	default:
		return fmt.Sprintf("unknown address 0x%02X", byte(a))
	}
}

// Packet is the semantic message carried by one frame's payload.
type Packet struct {
	Dst Address
	Src Address
	Cmd byte
	Dat string // opaque field region; schema depends on Cmd and direction
}

// Decode parses a frame payload into a Packet. It performs no schema
// validation beyond a minimum length and well-formed hex in the address/cmd
// header — per-command schema checking belongs to the message dictionary.
func Decode(payload []byte) (Packet, error) {
	if len(payload) < 6 {
		return Packet{}, fmt.Errorf("packet: payload too short: %d bytes, need at least 6", len(payload))
	}
	s := string(payload)

	dst, err := hex.DecodeString(s[0:2])
	if err != nil {
		return Packet{}, fmt.Errorf("packet: invalid dst field %q: %w", s[0:2], err)
	}
	src, err := hex.DecodeString(s[2:4])
	if err != nil {
		return Packet{}, fmt.Errorf("packet: invalid src field %q: %w", s[2:4], err)
	}
	cmd, err := hex.DecodeString(s[4:6])
	if err != nil {
		return Packet{}, fmt.Errorf("packet: invalid cmd field %q: %w", s[4:6], err)
	}

	return Packet{
		Dst: Address(dst[0]),
		Src: Address(src[0]),
		Cmd: cmd[0],
		Dat: s[6:],
	}, nil
}

// Encode renders the Packet back into a frame payload. It panics if Dat
// contains bytes the frame layer could never carry — that is a programmer
// error, not a bus condition.
func (p Packet) Encode() []byte {
	for i := 0; i < len(p.Dat); i++ {
		b := p.Dat[i]
		if !(b == 0x00 || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z')) {
			panic(fmt.Sprintf("packet: Dat contains byte 0x%02X not representable on the wire", b))
		}
	}
	return []byte(fmt.Sprintf("%02X%02X%02X%s", byte(p.Dst), byte(p.Src), p.Cmd, p.Dat))
}
