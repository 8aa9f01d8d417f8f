package message

import "fmt"

// Initiator records which side of a conversation sends the request for a
// given command: the charger, the ChargePoint, or (for a handful of
// commands) either.
type Initiator int

const (
	InitiatorEither Initiator = iota
	InitiatorCharger
	InitiatorChargePoint
)

// Spec documents one command code: its name and which side starts the
// exchange. It does not carry a fixed length — several commands accept more
// than one valid length, and the dictionary's job is to flag the ones that
// don't match rather than reject them outright.
type Spec struct {
	Opcode    byte
	Name      string
	Initiator Initiator
}

var registry = map[byte]Spec{
	0x11: {0x11, "register", InitiatorCharger},
	0x13: {0x13, "get meter info", InitiatorChargePoint},
	0x18: {0x18, "request update", InitiatorChargePoint},
	0x1B: {0x1B, "connection state changed", InitiatorChargePoint},
	0x1C: {0x1C, "led ring enable", InitiatorChargePoint},
	0x1E: {0x1E, "restart registration", InitiatorChargePoint},
	0x21: {0x21, "heartbeat", InitiatorEither},
	0x22: {0x22, "authentication request", InitiatorEither},
	0x23: {0x23, "metering start", InitiatorEither},
	0x24: {0x24, "metering end", InitiatorEither},
	0x26: {0x26, "charger state update", InitiatorEither},
	0x2A: {0x2A, "unknown 2A", InitiatorEither},
	0x31: {0x31, "remote start", InitiatorChargePoint},
	0x32: {0x32, "remote stop", InitiatorChargePoint},
	0x33: {0x33, "get configuration", InitiatorChargePoint},
	0x34: {0x34, "set configuration", InitiatorChargePoint},
	0x35: {0x35, "reboot", InitiatorChargePoint},
	0x36: {0x36, "unknown 36", InitiatorEither},
	0x37: {0x37, "unknown 37", InitiatorEither},
	0x38: {0x38, "unknown 38", InitiatorEither},
	0x41: {0x41, "unknown 41", InitiatorEither},
	0x42: {0x42, "set serial number", InitiatorChargePoint},
	0x43: {0x43, "hardware info", InitiatorChargePoint},
	0x65: {0x65, "set meter update interval", InitiatorChargePoint},
	0x66: {0x66, "meter value", InitiatorEither},
	0x6A: {0x6A, "charging state", InitiatorEither},
	0x6B: {0x6B, "set current limit", InitiatorChargePoint},
	0x6C: {0x6C, "unknown 6C", InitiatorEither},
	0xE1: {0xE1, "unknown E1", InitiatorEither},
	0xE3: {0xE3, "reboot", InitiatorEither},
	0xE4: {0xE4, "unknown E4", InitiatorEither},
	0xE6: {0xE6, "unknown E6", InitiatorEither},
	0xEB: {0xEB, "unknown EB", InitiatorEither},
	0xEC: {0xEC, "unknown EC", InitiatorEither},
	0xED: {0xED, "unknown ED", InitiatorEither},
	0xF0: {0xF0, "unknown F0", InitiatorEither},
	0xF1: {0xF1, "unknown F1", InitiatorEither},
	0xF2: {0xF2, "unknown F2", InitiatorEither},
	0xF3: {0xF3, "unknown F3", InitiatorEither},
	0xF4: {0xF4, "unknown F4", InitiatorEither},
	0xF5: {0xF5, "unknown F5", InitiatorEither},
	0xF6: {0xF6, "reboot", InitiatorEither},
	0xF7: {0xF7, "unknown F7", InitiatorEither},
	0xF8: {0xF8, "unknown F8", InitiatorEither},
	0xF9: {0xF9, "unknown F9", InitiatorEither},
	0xFA: {0xFA, "unknown FA", InitiatorEither},
	0xFB: {0xFB, "unknown FB", InitiatorEither},
	0xFD: {0xFD, "reboot", InitiatorEither},
}

// Lookup resolves a command byte to its dictionary entry.
func Lookup(cmd byte) (Spec, bool) {
	s, ok := registry[cmd]
	return s, ok
}

// Name returns the command's name, or a generic placeholder if it isn't in
// the dictionary at all.
func Name(cmd byte) string {
	if s, ok := registry[cmd]; ok {
		return s.Name
	}
	return fmt.Sprintf("unknown %02X", cmd)
}
