package frame

import "bytes"

// Result is one outcome of scanning a byte stream: either a successfully
// decoded payload, a malformed frame's decode error, or bytes discarded
// because they preceded a start-of-frame marker.
type Result struct {
	Payload   []byte
	Err       error
	Discarded []byte
}

// Scanner locates frames inside an accumulating byte stream. It is the only
// thing standing between a hostile bus and the packet layer: a malformed
// frame is reported and skipped, never propagated as a fatal error.
type Scanner struct {
	buf []byte
}

// Feed appends newly received bytes and extracts every frame that can be
// closed with what's now available. Bytes preceding the first start-of-frame
// marker are reported as Discarded. A start-of-frame marker with no matching
// end-of-frame marker yet is retained for the next call.
func (s *Scanner) Feed(data []byte) []Result {
	s.buf = append(s.buf, data...)

	var results []Result
	for {
		idx := bytes.IndexByte(s.buf, sof)
		if idx < 0 {
			if len(s.buf) > 0 {
				results = append(results, Result{Discarded: s.buf})
			}
			s.buf = nil
			return results
		}
		if idx > 0 {
			results = append(results, Result{Discarded: append([]byte(nil), s.buf[:idx]...)})
			s.buf = s.buf[idx:]
		}

		eofIdx := bytes.Index(s.buf, []byte{eof1, eof2})
		if eofIdx < 0 {
			// SOF present, EOF not yet seen: wait for more data.
			return results
		}

		raw := s.buf[:eofIdx+2]
		payload, err := Decode(raw)
		if err != nil {
			results = append(results, Result{Err: err})
		} else {
			results = append(results, Result{Payload: payload})
		}
		s.buf = s.buf[eofIdx+2:]

		if len(s.buf) == 0 {
			return results
		}
	}
}

// Pending reports the bytes retained across calls (an as-yet-unterminated
// frame, or nothing).
func (s *Scanner) Pending() []byte {
	return s.buf
}
