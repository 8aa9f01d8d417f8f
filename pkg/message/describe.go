package message

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/geekabit/evbox-chargepoint/pkg/packet"
)

const addrCP = packet.AddrCP

// Observation is a human-readable rendering of one packet plus whatever
// PayloadError warnings its dat region triggered against the dictionary.
// Warnings never prevent the packet from being delivered to the actor —
// they exist purely so a malformed or unexpected wire message shows up in
// logs instead of silently being misread.
type Observation struct {
	Summary  string
	Warnings []string
}

var fieldSpacer = regexp.MustCompile(`.{1,4}`)

// Describe renders a packet for logging, mirroring the field-by-field
// breakdown the charger-side tooling prints for every exchange. Each command
// branch checks whether the packet is addressed to the ChargePoint
// (dst == addrCP) or sent by it (src == addrCP), since most commands carry a
// different dat layout and expected length in each direction.
func Describe(dst, src packet.Address, cmd byte, dat string) Observation {
	length := len(dat)
	var warnings []string
	expect := func(want int) {
		if length != want {
			warnings = append(warnings, fmt.Sprintf("invalid message length: %d, expected: %d", length, want))
		}
	}

	detail := "unknown"

	switch cmd {
	case 0x11:
		if dst == addrCP {
			expect(15)
			serial, _ := substr(dat, 0, 7)
			firmware, _ := substr(dat, 7, 11)
			hwgen, _ := substr(dat, 13, 15)
			detail = fmt.Sprintf("serial number: %s, firmware version: %s, hardware generation: %s", serial, firmware, hwgen)
		} else {
			expect(11)
			serial, _ := substr(dat, 0, 7)
			addr, _ := substr(dat, 7, 9)
			gen, _ := substr(dat, 9, 11)
			detail = fmt.Sprintf("serial number: %s, address: %s, gen: %s", serial, addr, gen)
		}
	case 0x18:
		if src == addrCP {
			expect(2)
			t, _ := hexByte(dat, 0)
			detail = fmt.Sprintf("update type: %d", t)
		} else {
			warnings = append(warnings, "command 18 does not have a response")
		}
	case 0x1B:
		if src == addrCP {
			expect(10)
			detail = ""
		} else {
			warnings = append(warnings, "command 1B does not have a response")
		}
	case 0x1C:
		if src == addrCP {
			expect(2)
			state, _ := hexByte(dat, 0)
			name := "invalid"
			switch state {
			case 0x00:
				name = "disable"
			case 0x01:
				name = "enable"
			}
			detail = fmt.Sprintf("state: %s", name)
		} else {
			warnings = append(warnings, "command 1C does not have a response")
		}
	case 0x1E:
		if src == addrCP {
			expect(0)
			detail = ""
		} else {
			warnings = append(warnings, "command 1E does not have a response")
		}
	case 0x21:
		expect(0)
		detail = ""
	case 0x22:
		if dst == addrCP {
			expect(26)
		} else {
			expect(30)
		}
		state, _ := hexByte(dat, 0)
		stateName := fmt.Sprintf("invalid: %02X", state)
		switch state {
		case 0x00:
			stateName = "authentication request"
		case 0x01:
			stateName = "access granted"
		case 0x03:
			stateName = "not connected to backend"
		case 0x12:
			stateName = "access denied"
		case 0x1D:
			stateName = "invalid card number"
		}
		detail = fmt.Sprintf("state: %s", stateName)
		if cardLen, ok := hexUint(dat, 2, 2); ok && cardLen > 0 {
			if card, ok := substr(dat, 4, 4+int(cardLen)); ok {
				if card == "000000AS" {
					detail += ", auto start"
				} else {
					detail += fmt.Sprintf(", card number: %s", card)
				}
			}
		}
	case 0x23:
		if dst == addrCP {
			expect(32)
			cardLen, _ := hexUint(dat, 0, 2)
			card, _ := substr(dat, 2, 2+int(cardLen))
			meter, _ := hexUint(dat, 24, 8)
			detail = fmt.Sprintf("card number: %s, meter value: %.3fkWh", card, float64(meter)/1000)
		} else {
			expect(18)
			session, _ := hexUint(dat, 2, 8)
			ts, _ := hexUint(dat, 10, 8)
			detail = fmt.Sprintf("session: %d, timestamp: %s", session, formatTimestamp(ts))
		}
	case 0x24:
		if dst == addrCP {
			expect(50)
			cardLen, _ := hexUint(dat, 0, 2)
			card, _ := substr(dat, 2, 2+int(cardLen))
			meter, _ := hexUint(dat, 24, 8)
			session, _ := hexUint(dat, 32, 8)
			ts, _ := hexUint(dat, 42, 8)
			detail = fmt.Sprintf("card number: %s, meter value: %.3fkWh, session: %d, timestamp: %s", card, float64(meter)/1000, session, formatTimestamp(ts))
		} else {
			expect(2)
			detail = ""
		}
	case 0x26:
		if dst == addrCP {
			expect(132)
			state, _ := hexByte(dat, 0)
			stateName := fmt.Sprintf("invalid: %02X", state)
			switch state {
			case 0x02:
				stateName = "available"
			case 0x0A:
				stateName = "error"
			case 0x47:
				stateName = "charging cable connected"
			case 0x48:
				stateName = "charging"
			case 0x4A:
				stateName = "ready"
			case 0x4B:
				stateName = "finished"
			}
			meter, _ := hexUint(dat, 18, 8)
			session, _ := hexUint(dat, 58, 8)
			currentLimit, _ := hexUint(dat, 124, 4)
			detail = fmt.Sprintf("state: %s, meter value: %.3fkWh, session: %d, current limit: %.1fA", stateName, float64(meter)/1000, session, float64(currentLimit)/10)
		} else {
			expect(16)
			session, _ := hexUint(dat, 0, 8)
			ts, _ := hexUint(dat, 8, 8)
			if ts == 0 {
				detail = "not connected to backend"
			} else {
				detail = fmt.Sprintf("session: %d, timestamp: %s", session, formatTimestamp(ts))
			}
		}
	case 0x31:
		if src == addrCP {
			expect(24)
			cardLen, _ := hexUint(dat, 0, 2)
			card, _ := substr(dat, 2, 2+int(cardLen))
			detail = fmt.Sprintf("card number: %s", card)
		} else {
			expect(2)
			state, _ := hexByte(dat, 0)
			detail = fmt.Sprintf("state: %s", remoteResultName(state))
		}
	case 0x32:
		if src == addrCP {
			expect(8)
			session, _ := hexUint(dat, 0, 8)
			detail = fmt.Sprintf("session: %d", session)
		} else {
			expect(2)
			state, _ := hexByte(dat, 0)
			detail = fmt.Sprintf("state: %s", remoteResultName(state))
		}
	case 0x33:
		if src == addrCP {
			expect(0)
			detail = ""
		} else if length != 74 && length != 78 {
			warnings = append(warnings, fmt.Sprintf("invalid message length: %d, expected: 74", length))
		}
	case 0x34:
		if src == addrCP {
			expect(86)
			ledBrightness, _ := hexUint(dat, 8, 2)
			meterType, _ := hexUint(dat, 16, 2)
			meterTypeName := "invalid"
			switch meterType {
			case 0:
				meterTypeName = "pulse"
			case 1:
				meterTypeName = "serial"
			}
			autoStart, _ := hexUint(dat, 38, 2)
			meterUpdateInterval, _ := hexUint(dat, 58, 8)
			remoteStart, _ := hexUint(dat, 74, 2)
			detail = fmt.Sprintf("led brightness: %d%%, meter update interval: %ds, meter type: %s, auto start: %d, remote start: %d",
				ledBrightness, meterUpdateInterval, meterTypeName, autoStart, remoteStart)
		} else {
			expect(4)
		}
	case 0x42:
		expect(7)
		serial, _ := substr(dat, 0, 7)
		detail = fmt.Sprintf("serial number: %s", serial)
	case 0x43:
		if src == addrCP {
			expect(0)
			detail = ""
		} else {
			expect(18)
			hwgen, _ := substr(dat, 0, 2)
			firmware, _ := substr(dat, 2, 6)
			detail = fmt.Sprintf("hardware generation: %s, firmware version: %s", hwgen, firmware)
		}
	case 0x65:
		if src == addrCP {
			expect(4)
			interval, _ := hexUint(dat, 0, 4)
			detail = fmt.Sprintf("interval: %ds", interval)
		} else {
			warnings = append(warnings, "command 65 does not have a response")
		}
	case 0x66:
		if dst == addrCP {
			expect(44)
			meter, _ := hexUint(dat, 36, 8)
			detail = fmt.Sprintf("meter value: %.3fkWh", float64(meter)/1000)
		} else {
			expect(0)
			detail = ""
		}
	case 0x6A:
		if dst == addrCP {
			expect(4)
			state, _ := hexByte(dat, 0)
			detail = fmt.Sprintf("state: %s", chargingStateName(state))
		} else {
			expect(4)
			state, _ := hexUint(dat, 0, 4)
			if state == 0xAA00 {
				detail = "ack"
			} else {
				detail = fmt.Sprintf("invalid: %04X", state)
			}
		}
	case 0x6B:
		if src == addrCP {
			expect(18)
			min, _ := hexUint(dat, 2, 4)
			c1, _ := hexUint(dat, 6, 4)
			c2, _ := hexUint(dat, 10, 4)
			c3, _ := hexUint(dat, 14, 4)
			detail = fmt.Sprintf("current min: %.1fA, current limit: %.1f/%.1f/%.1fA", float64(min)/10, float64(c1)/10, float64(c2)/10, float64(c3)/10)
		} else {
			expect(0)
			detail = ""
		}
	default:
		detail = ""
	}

	name := Name(cmd)
	cmdType := "unknown"
	switch {
	case cmd == 0x41:
		cmdType = "unknown"
	case dst == addrCP:
		cmdType = "request"
	case src == addrCP:
		cmdType = "request"
	default:
		cmdType = "response"
	}

	summary := fmt.Sprintf("dst: %02X (%s), src: %02X (%s), cmd: %02X (%s), typ: %s",
		byte(dst), dst, byte(src), src, cmd, name, cmdType)
	if length > 0 {
		summary += fmt.Sprintf(", dat: %s (%s), length: %d", fieldSpacer.ReplaceAllString(dat, "$0 "), detail, length)
	}

	return Observation{Summary: strings.TrimSpace(summary), Warnings: warnings}
}

func formatTimestamp(seconds uint64) string {
	return Epoch.Add(time.Duration(seconds) * time.Second).Format(time.RFC3339)
}

func remoteResultName(state byte) string {
	switch state {
	case 0x01:
		return "success"
	case 0x23:
		return "failed"
	default:
		return fmt.Sprintf("invalid: %02X", state)
	}
}

func chargingStateName(state byte) string {
	switch state {
	case 0x07:
		return "unknown 07"
	case 0x20:
		return "unknown 20"
	case ChargingStateUnplugged:
		return "unplugged"
	case ChargingStateCharging:
		return "charging"
	case ChargingStateAvailable:
		return "available"
	case ChargingStateReady:
		return "ready"
	case ChargingStateFinished:
		return "finished"
	case ChargingStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("invalid: %02X", state)
	}
}
