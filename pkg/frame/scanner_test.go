package frame

import "testing"

func TestScannerExtractsFrameSplitAcrossFeeds(t *testing.T) {
	payload := []byte("BC801E")
	encoded, err := Encode(payload)
	if err != nil {
		t.Fatal(err)
	}

	var s Scanner
	split := len(encoded) / 2
	if results := s.Feed(encoded[:split]); len(results) != 0 {
		t.Fatalf("expected no results before EOF arrives, got %+v", results)
	}
	results := s.Feed(encoded[split:])
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d: %+v", len(results), results)
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected decode error: %v", results[0].Err)
	}
	if string(results[0].Payload) != string(payload) {
		t.Errorf("payload = %q, want %q", results[0].Payload, payload)
	}
}

func TestScannerDiscardsJunkBeforeSOF(t *testing.T) {
	payload := []byte("BC801E")
	encoded, err := Encode(payload)
	if err != nil {
		t.Fatal(err)
	}
	junk := []byte{0xAA, 0xBB, 0xCC}
	var s Scanner
	results := s.Feed(append(append([]byte(nil), junk...), encoded...))
	if len(results) != 2 {
		t.Fatalf("expected discard + frame, got %d results: %+v", len(results), results)
	}
	if string(results[0].Discarded) != string(junk) {
		t.Errorf("discarded = % X, want % X", results[0].Discarded, junk)
	}
	if results[1].Err != nil || string(results[1].Payload) != string(payload) {
		t.Errorf("unexpected second result: %+v", results[1])
	}
}

func TestScannerSkipsMalformedFrameAndContinues(t *testing.T) {
	good, err := Encode([]byte("BC801E"))
	if err != nil {
		t.Fatal(err)
	}
	bad := append([]byte(nil), good...)
	bad[3] ^= 0xFF // corrupt a payload byte without touching SOF/EOF alignment
	bad[3] = '9'   // keep it in the allowed charset but wrong for the checksum

	stream := append(append([]byte(nil), bad...), good...)
	var s Scanner
	results := s.Feed(stream)
	if len(results) != 2 {
		t.Fatalf("expected malformed + good frame, got %d: %+v", len(results), results)
	}
	if results[0].Err == nil {
		t.Error("expected first frame to report a decode error")
	}
	if results[1].Err != nil {
		t.Errorf("expected second frame to decode cleanly, got %v", results[1].Err)
	}
}

func TestScannerConvergesWithNoNewData(t *testing.T) {
	encoded, err := Encode([]byte("BC801E"))
	if err != nil {
		t.Fatal(err)
	}
	var s Scanner
	s.Feed(encoded[:5]) // partial frame, SOF seen, EOF not yet
	first := s.Pending()
	results := s.Feed(nil)
	if len(results) != 0 {
		t.Fatalf("expected no results from feeding no new data, got %+v", results)
	}
	if string(s.Pending()) != string(first) {
		t.Errorf("pending buffer changed with no new data: %q -> %q", first, s.Pending())
	}
}

func TestScannerDiscardsEverythingWhenNoSOF(t *testing.T) {
	var s Scanner
	results := s.Feed([]byte{0x11, 0x22, 0x33})
	if len(results) != 1 || string(results[0].Discarded) != "\x11\x22\x33" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(s.Pending()) != 0 {
		t.Errorf("expected buffer to be cleared, got %q", s.Pending())
	}
}
