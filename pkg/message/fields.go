package message

import (
	"fmt"
	"strings"
	"time"
)

// Ack/nack markers that recur across many dat bodies.
const (
	AckHex  = "AA00"
	NackHex = "0055"
)

// Epoch is the reference point for the 8-hex-char timestamps used by
// metering and state-update responses: seconds since 2000-01-01 00:00:00 UTC.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Timestamp renders now as an 8-character upper-case hex count of seconds
// since Epoch.
func Timestamp(now time.Time) string {
	return fmt.Sprintf("%08X", uint32(now.Sub(Epoch).Seconds()))
}

// RegisterRequest is the charger's post-boot registration request (cmd 0x11).
type RegisterRequest struct {
	Serial      string
	Firmware    string
	HWGeneration string
}

// ParseRegisterRequest extracts the fields of a 0x11 request. The length
// contract is 15 hex characters; callers should still check len(dat) before
// trusting downstream slices if they need to report a PayloadError.
func ParseRegisterRequest(dat string) (RegisterRequest, bool) {
	serial, ok := substr(dat, 0, 7)
	if !ok {
		return RegisterRequest{}, false
	}
	firmware, _ := substr(dat, 7, 11)
	hwgen, _ := substr(dat, 13, 15)
	return RegisterRequest{Serial: serial, Firmware: firmware, HWGeneration: hwgen}, true
}

// BuildRegisterResponse echoes the charger's serial back with the newly
// assigned address and hardware generation.
func BuildRegisterResponse(serial string, newAddr byte, generation byte) string {
	return fmt.Sprintf("%s%02X%02X", serial, newAddr, generation)
}

// AuthRequest is a charger-originated card-authentication request (cmd 0x22).
type AuthRequest struct {
	CardNumberLength int
	CardNumber       string
}

// ParseAuthRequest extracts the card number from a 0x22 request dat region.
func ParseAuthRequest(dat string) (AuthRequest, bool) {
	length, ok := hexUint(dat, 2, 2)
	if !ok {
		return AuthRequest{}, false
	}
	card, ok := substr(dat, 4, 4+int(length))
	if !ok {
		return AuthRequest{}, false
	}
	return AuthRequest{CardNumberLength: int(length), CardNumber: card}, true
}

// Auth response status codes (cmd 0x22 response).
const (
	AuthStatusRequest      = "00"
	AuthStatusGranted      = "01"
	AuthStatusNoBackend    = "03"
	AuthStatusDenied       = "12"
	AuthStatusInvalidCard  = "1D"
)

// BuildAuthResponse pads the card number field to 22 characters with
// trailing zeros and appends the fixed "FFFF" trailer, giving the
// 30-character response length the dictionary expects.
func BuildAuthResponse(status string, cardNumberLength int, cardNumber string) string {
	padded := cardNumber
	if len(padded) < 22 {
		padded += strings.Repeat("0", 22-len(padded))
	}
	return fmt.Sprintf("%s%02X%sFFFF", status, cardNumberLength, padded)
}

// BuildMeteringStartResponse acknowledges a metering-start request with a
// session id (always zero, this implementation tracks no sessions) and a
// timestamp.
func BuildMeteringStartResponse(session uint32, now time.Time) string {
	return fmt.Sprintf("01%08X%s", session, Timestamp(now))
}

// BuildMeteringEndResponse acknowledges a metering-end request.
func BuildMeteringEndResponse() string {
	return "01"
}

// BuildStateUpdateResponse replies to a charger state update (cmd 0x26) with
// a session id and timestamp.
func BuildStateUpdateResponse(session uint32, now time.Time) string {
	return fmt.Sprintf("%08X%s", session, Timestamp(now))
}

// Charging state codes carried by a 0x6A request.
const (
	ChargingStateUnplugged = 0x80
	ChargingStateCharging  = 0x81
	ChargingStateAvailable = 0xA0
	ChargingStateReady     = 0xA7
	ChargingStateFinished  = 0xC1
	ChargingStateFailed    = 0xE7
)

// ParseChargingState extracts the one-byte state code from a 0x6A request.
func ParseChargingState(dat string) (byte, bool) {
	return hexByte(dat, 0)
}

// BuildChargingStateAck acknowledges a 0x6A charging-state notification.
func BuildChargingStateAck() string {
	return AckHex
}

// CurrentLimits is the set of per-phase current limits carried by a 0x6B
// request, in deciamps (value ×0.1A) as they appear on the wire.
type CurrentLimits struct {
	Min, L1, L2, L3 uint16
}

// BuildSetCurrentLimit encodes a 0x6B set-current-limit request. The leading
// "01" byte is a fixed selector observed on the wire; its meaning beyond
// "apply these limits" is undocumented.
func BuildSetCurrentLimit(l CurrentLimits) string {
	return fmt.Sprintf("01%04X%04X%04X%04X", l.Min, l.L1, l.L2, l.L3)
}

// BuildConnectionStateChanged encodes a 0x1B request.
func BuildConnectionStateChanged(heartbeatIntervalSeconds uint32, ledEnable bool) string {
	led := byte(0)
	if ledEnable {
		led = 1
	}
	return fmt.Sprintf("%08X%02X", heartbeatIntervalSeconds, led)
}

// Configuration is the subset of a 0x34 set-configuration body this actor
// has an opinion about; the surrounding bytes are a fixed template observed
// on the wire and not otherwise understood.
type Configuration struct {
	LEDBrightness       byte // percent, 0-100 as a raw byte (0x1E observed = 30%)
	MeterIsSerial       bool
	AutoStart           bool
	MeterUpdateInterval uint32 // seconds
	RemoteStart         bool
}

// DefaultConfiguration is sent during phase2 of post-registration setup: 30%
// LED brightness, a serial meter, auto-start enabled so a presented card
// isn't required to begin a session, and a one-minute meter update interval.
var DefaultConfiguration = Configuration{
	LEDBrightness:       0x1E,
	MeterIsSerial:       true,
	AutoStart:           true,
	MeterUpdateInterval: 60,
	RemoteStart:         false,
}

// BuildSetConfiguration lays out a 0x34 request body. Every field besides
// the five Configuration knobs is a constant observed on the wire and
// reproduced verbatim; its meaning is not otherwise documented.
func BuildSetConfiguration(c Configuration) string {
	return "FFFFFFFF" +
		fmt.Sprintf("%02X", c.LEDBrightness) +
		"030000" +
		boolHex(c.MeterIsSerial) +
		"01000100000000000000" +
		boolHex(c.AutoStart) +
		"000000003C00000384" +
		fmt.Sprintf("%08X", c.MeterUpdateInterval) +
		"01000000" +
		boolHex(c.RemoteStart) +
		"03E8010000"
}

func boolHex(b bool) string {
	if b {
		return "01"
	}
	return "00"
}
