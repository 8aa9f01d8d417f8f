package chargepoint

import (
	"testing"
	"time"

	"github.com/geekabit/evbox-chargepoint/pkg/clock"
	"github.com/geekabit/evbox-chargepoint/pkg/packet"
)

func newTestActor(allowed ...string) (*Actor, *clock.Mock) {
	mock := clock.NewMock()
	set := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		set[c] = true
	}
	a := New(Config{AllowedCards: set, Clock: mock})
	a.Outbox() // discard the construction-time restart-registration broadcast
	return a, mock
}

func TestConstructionBroadcastsRestartRegistration(t *testing.T) {
	mock := clock.NewMock()
	a := New(Config{Clock: mock})
	out := a.Outbox()
	if len(out) != 1 {
		t.Fatalf("expected exactly one queued packet, got %d", len(out))
	}
	if out[0].Cmd != 0x1E || out[0].Dst != packet.AddrBroadcast || out[0].Src != packet.AddrCP {
		t.Errorf("unexpected restart packet: %+v", out[0])
	}
}

func TestIgnoresPacketsNotAddressedToIt(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{Dst: packet.AddrChargeStation, Src: packet.AddrNew, Cmd: 0x11, Dat: "whatever"})
	if out := a.Outbox(); len(out) != 0 {
		t.Errorf("expected no outbound packets, got %+v", out)
	}
	if a.Phase() != PhaseIdle {
		t.Errorf("phase changed to %s on an unaddressed packet", a.Phase())
	}
}

func TestRegisterProducesAddressedResponseAndAdvancesPhase(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{
		Dst: packet.AddrCP,
		Src: packet.AddrNew,
		Cmd: 0x11,
		Dat: "1234567ABCD0003",
	})
	out := a.Outbox()
	if len(out) != 1 {
		t.Fatalf("expected exactly one response, got %d: %+v", len(out), out)
	}
	want := "1234567" + "01" + "03"
	if out[0].Dat != want {
		t.Errorf("register response dat = %q, want %q", out[0].Dat, want)
	}
	if a.Phase() != Phase1 {
		t.Errorf("phase = %s, want phase1", a.Phase())
	}
}

func TestAuthGrantedForAllowedCard(t *testing.T) {
	a, _ := newTestActor("04BA2A2ADA1790")
	a.Respond(packet.Packet{
		Dst: packet.AddrCP,
		Src: packet.AddrCharger,
		Cmd: 0x22,
		Dat: "00" + "0E" + "04BA2A2ADA1790" + "FFFF",
	})
	out := a.Outbox()
	if len(out) != 1 {
		t.Fatalf("expected one auth response, got %d", len(out))
	}
	if out[0].Dat[:2] != "01" {
		t.Errorf("expected granted status, got %q", out[0].Dat[:2])
	}
}

func TestAuthDeniedForUnknownCard(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{
		Dst: packet.AddrCP,
		Src: packet.AddrCharger,
		Cmd: 0x22,
		Dat: "00" + "0E" + "04BA2A2ADA1790" + "FFFF",
	})
	out := a.Outbox()
	if len(out) != 1 || out[0].Dat[:2] != "12" {
		t.Fatalf("expected denied status, got %+v", out)
	}
}

func TestAuthGrantedForAutoStart(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{
		Dst: packet.AddrCP,
		Src: packet.AddrCharger,
		Cmd: 0x22,
		Dat: "00" + "08" + "000000AS" + "000000000000",
	})
	out := a.Outbox()
	if len(out) != 1 || out[0].Dat[:2] != "01" {
		t.Fatalf("expected auto-start to grant access, got %+v", out)
	}
}

func TestChargingStateReadyAcksAndSetsLowCurrentLimit(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{Dst: packet.AddrCP, Src: packet.AddrCharger, Cmd: 0x6A, Dat: "A700"})
	out := a.Outbox()
	if len(out) != 2 {
		t.Fatalf("expected ack + current-limit packets, got %d: %+v", len(out), out)
	}
	var ack, limit *packet.Packet
	for i := range out {
		switch out[i].Cmd {
		case 0x6A:
			ack = &out[i]
		case 0x6B:
			limit = &out[i]
		}
	}
	if ack == nil || ack.Dat != "AA00" {
		t.Errorf("missing or wrong ack: %+v", ack)
	}
	if limit == nil || limit.Dat != "01003C003C003C003C" {
		t.Errorf("unexpected current-limit dat: %+v", limit)
	}
}

func TestChargingStateChargingSetsHighCurrentLimit(t *testing.T) {
	a, _ := newTestActor()
	a.Respond(packet.Packet{Dst: packet.AddrCP, Src: packet.AddrCharger, Cmd: 0x6A, Dat: "8100"})
	out := a.Outbox()
	var limit string
	for _, p := range out {
		if p.Cmd == 0x6B {
			limit = p.Dat
		}
	}
	if limit != "01003C00A000A000A0" {
		t.Errorf("current-limit dat = %q, want 01003C00A000A000A0", limit)
	}
}

func TestRetransmitAfterTwoSeconds(t *testing.T) {
	a, mock := newTestActor()
	a.Respond(packet.Packet{Dst: packet.AddrCP, Src: packet.AddrCharger, Cmd: 0x6A, Dat: "A700"})
	a.Outbox() // drain the ack + tracked current-limit send

	mock.Add(2*time.Second + time.Millisecond)
	a.Tick()
	out := a.Outbox()
	if len(out) != 1 || out[0].Cmd != 0x6B {
		t.Fatalf("expected a retransmitted 0x6B, got %+v", out)
	}
}

func TestPhaseWalkAfterRegistration(t *testing.T) {
	a, mock := newTestActor()
	a.Respond(packet.Packet{Dst: packet.AddrCP, Src: packet.AddrNew, Cmd: 0x11, Dat: "1234567ABCD0003"})
	a.Outbox()

	mock.Add(5*time.Second + time.Millisecond)
	a.Tick()
	out := a.Outbox()
	if len(out) != 1 || out[0].Cmd != 0x1B || out[0].Dst != packet.AddrCharger {
		t.Fatalf("expected a 0x1B to CHARGER, got %+v", out)
	}
	if a.Phase() != Phase2 {
		t.Fatalf("phase = %s, want phase2", a.Phase())
	}

	mock.Add(5*time.Second + time.Millisecond)
	a.Tick()
	out = a.Outbox()
	if len(out) != 1 || out[0].Cmd != 0x34 {
		t.Fatalf("expected a 0x34 set-configuration, got %+v", out)
	}
	if a.Phase() != Phase3 {
		t.Fatalf("phase = %s, want phase3", a.Phase())
	}
}
