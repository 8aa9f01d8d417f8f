// Package frame validates and emits the on-wire envelope around a packet
// payload: start/end markers, an ASCII-hex checksum, and an ASCII-hex parity
// byte. It knows nothing about what the payload means.
package frame

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	sof byte = 0x02
	eof1 byte = 0x03
	eof2 byte = 0xFF

	// minLength is the shortest a valid frame can be.
	minLength = 13
)

// Error reports every invariant a frame failed, plus the raw bytes that
// failed them, so a caller can dump the offending frame without re-deriving
// it.
type Error struct {
	Reasons []string
	Raw     []byte
}

func (e *Error) Error() string {
	var b strings.Builder
	for _, r := range e.Reasons {
		b.WriteString(r)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Frame: % X", e.Raw)
	return b.String()
}

// Decode validates a raw frame and returns its payload. It reports every
// failed invariant at once, not just the first.
func Decode(raw []byte) ([]byte, error) {
	var reasons []string

	if len(raw) < minLength {
		reasons = append(reasons, fmt.Sprintf("Invalid frame length: %d, expected: >= %d", len(raw), minLength))
	}

	if len(raw) == 0 || raw[0] != sof {
		got := "<empty>"
		if len(raw) > 0 {
			got = fmt.Sprintf("0x%02X", raw[0])
		}
		reasons = append(reasons, fmt.Sprintf("Invalid start of frame marker: %s", got))
	}

	if len(raw) < 2 || raw[len(raw)-2] != eof1 || raw[len(raw)-1] != eof2 {
		reasons = append(reasons, "Invalid end of frame marker")
	}

	// payload region is raw[1:len-6]; clamp so we never slice out of range
	// on a too-short or malformed frame, mirroring the permissive slicing a
	// reference implementation gets for free.
	payload := payloadRegion(raw)

	for _, b := range payload {
		if b == sof {
			reasons = append(reasons, "Start of frame marker inside payload.")
			break
		}
	}
	for _, b := range payload {
		if b == eof1 {
			reasons = append(reasons, "End of frame marker inside payload.")
			break
		}
	}
	for _, b := range payload {
		if !(b == 0x00 || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z')) {
			reasons = append(reasons, fmt.Sprintf("Invalid value in frame payload: %02X.", b))
		}
	}

	wantChecksum := checksumHex(payload)
	gotChecksum := trailingField(raw, 6, 2)
	if gotChecksum != wantChecksum {
		reasons = append(reasons, "Invalid frame checksum.")
	}

	wantParity := parityHex(payload)
	gotParity := trailingField(raw, 4, 2)
	if gotParity != wantParity {
		reasons = append(reasons, "Invalid frame parity.")
	}

	if len(reasons) > 0 {
		return nil, &Error{Reasons: reasons, Raw: raw}
	}
	return payload, nil
}

// Encode builds a frame around payload, then re-validates the result before
// returning it: the encoder never emits a frame it would itself reject.
func Encode(payload []byte) ([]byte, error) {
	out := make([]byte, 0, 1+len(payload)+2+2+2)
	out = append(out, sof)
	out = append(out, payload...)
	out = append(out, []byte(checksumHex(payload))...)
	out = append(out, []byte(parityHex(payload))...)
	out = append(out, eof1, eof2)

	if _, err := Decode(out); err != nil {
		return nil, fmt.Errorf("frame: encoder produced an invalid frame: %w", err)
	}
	return out, nil
}

// payloadRegion extracts raw[1:len-6], clamped to valid bounds for frames
// that are too short to have a real payload.
func payloadRegion(raw []byte) []byte {
	start := 1
	if start > len(raw) {
		start = len(raw)
	}
	end := len(raw) - 6
	if end < start {
		end = start
	}
	return raw[start:end]
}

// trailingField reads a fixed-width field counted back from the end of raw,
// clamped so malformed short frames never panic.
func trailingField(raw []byte, fromEnd, width int) string {
	end := len(raw) - fromEnd + width
	start := len(raw) - fromEnd
	if start < 0 {
		start = 0
	}
	if end > len(raw) {
		end = len(raw)
	}
	if end < start {
		end = start
	}
	return string(raw[start:end])
}

func checksumHex(payload []byte) string {
	sum := 0
	for _, b := range payload {
		sum += int(b)
	}
	return strings.ToUpper(hex.EncodeToString([]byte{byte(sum % 256)}))
}

func parityHex(payload []byte) string {
	var parity byte
	for _, b := range payload {
		parity ^= b
	}
	return strings.ToUpper(hex.EncodeToString([]byte{parity}))
}
