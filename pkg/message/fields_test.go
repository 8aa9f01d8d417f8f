package message

import (
	"testing"
	"time"
)

func TestRegisterRoundTrip(t *testing.T) {
	dat := "SN12345" + "0100" + "00" + "02"
	req, ok := ParseRegisterRequest(dat)
	if !ok {
		t.Fatal("expected a parseable register request")
	}
	if req.Serial != "SN12345" || req.Firmware != "0100" || req.HWGeneration != "02" {
		t.Errorf("unexpected fields: %+v", req)
	}
	resp := BuildRegisterResponse(req.Serial, 0x02, 0x01)
	if len(resp) != 11 {
		t.Errorf("register response length = %d, want 11", len(resp))
	}
}

func TestAuthRequestRoundTrip(t *testing.T) {
	dat := "00" + "08" + "000000AS" + "0000000000000000"
	req, ok := ParseAuthRequest(dat)
	if !ok {
		t.Fatal("expected a parseable auth request")
	}
	if req.CardNumber != "000000AS" {
		t.Errorf("card number = %q", req.CardNumber)
	}
}

func TestBuildAuthResponseLength(t *testing.T) {
	resp := BuildAuthResponse(AuthStatusGranted, 8, "000000AS")
	if len(resp) != 30 {
		t.Errorf("auth response length = %d, want 30", len(resp))
	}
}

func TestTimestampRoundTripsThroughEpoch(t *testing.T) {
	now := Epoch.Add(100 * time.Second)
	ts := Timestamp(now)
	if ts != "00000064" {
		t.Errorf("Timestamp = %q, want 00000064", ts)
	}
}

func TestBuildSetConfigurationLength(t *testing.T) {
	dat := BuildSetConfiguration(DefaultConfiguration)
	if len(dat) != 86 {
		t.Fatalf("set configuration length = %d, want 86", len(dat))
	}
	if dat[8:10] != "1E" {
		t.Errorf("led brightness field = %q, want 1E", dat[8:10])
	}
	if dat[38:40] != "01" {
		t.Errorf("auto start field = %q, want 01", dat[38:40])
	}
	if dat[58:66] != "0000003C" {
		t.Errorf("meter update interval field = %q, want 0000003C", dat[58:66])
	}
}

func TestBuildSetCurrentLimit(t *testing.T) {
	dat := BuildSetCurrentLimit(CurrentLimits{Min: 60, L1: 160, L2: 160, L3: 160})
	if len(dat) != 18 {
		t.Fatalf("set current limit length = %d, want 18", len(dat))
	}
}
