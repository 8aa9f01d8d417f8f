// Package chargepoint implements the reactive ChargePoint role: the
// controller side of the EVBox HomeLine bus protocol, responsible for
// registering a charger, authenticating cards, and walking it through
// post-registration configuration.
package chargepoint

import (
	"log"
	"time"

	"github.com/geekabit/evbox-chargepoint/pkg/clock"
	"github.com/geekabit/evbox-chargepoint/pkg/message"
	"github.com/geekabit/evbox-chargepoint/pkg/packet"
)

// Phase tracks progress through the fixed post-registration configuration
// walk. It only ever advances idle -> phase1 -> phase2 -> phase3 -> idle,
// restarting at phase1 whenever a charger (re)registers.
type Phase int

const (
	PhaseIdle Phase = iota
	Phase1
	Phase2
	Phase3
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case Phase1:
		return "phase1"
	case Phase2:
		return "phase2"
	case Phase3:
		return "phase3"
	default:
		return "invalid"
	}
}

const (
	retransmitAfter = 2 * time.Second
	configureAfter  = 5 * time.Second

	autoStartCard = "000000AS"
)

// Config carries the parameters supplied at construction time: the set of
// card identifiers allowed to authorize a session, and the clock to read
// time from (clock.New() for production use, a clock.Mock for tests).
type Config struct {
	AllowedCards map[string]bool
	Clock        clock.Clock
}

// Actor is the ChargePoint role's state machine. It is not safe for
// concurrent use — the I/O loop that owns the serial link is expected to
// drive it from a single goroutine, per the bus's half-duplex, single-reader
// nature.
type Actor struct {
	clock        clock.Clock
	allowedCards map[string]bool

	outbox []packet.Packet

	lastSent         packet.Packet
	lastSentAt       time.Time
	awaitingResponse bool

	initPhase Phase
}

// New constructs an Actor and immediately enqueues a broadcast restart of
// registration, so any charger already on the bus re-announces itself.
func New(cfg Config) *Actor {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	a := &Actor{
		clock:        c,
		allowedCards: cfg.AllowedCards,
	}
	a.enqueue(packet.Packet{
		Dst: packet.AddrBroadcast,
		Src: packet.AddrCP,
		Cmd: 0x1E,
		Dat: "",
	}, false)
	return a
}

// Phase reports the current post-registration configuration phase.
func (a *Actor) Phase() Phase {
	return a.initPhase
}

// Outbox drains and returns every packet queued since the last call. Order
// follows the bus's observed enqueue-at-front/pop-at-front discipline: the
// most recently enqueued packet within a batch is returned first.
func (a *Actor) Outbox() []packet.Packet {
	out := a.outbox
	a.outbox = nil
	return out
}

// enqueue pushes p to the front of the outbox. When track is true, p also
// becomes the retry-tracked last-sent packet and arms the retransmission
// timer.
func (a *Actor) enqueue(p packet.Packet, track bool) {
	a.outbox = append([]packet.Packet{p}, a.outbox...)
	if track {
		a.awaitingResponse = true
		a.lastSent = p
	}
	a.lastSentAt = a.clock.Now()
}

// Respond reacts to one packet received from the bus. Packets not addressed
// to this actor (neither BROADCAST nor CP) are ignored outright, leaving the
// outbox and init phase untouched.
func (a *Actor) Respond(p packet.Packet) {
	if p.Dst != packet.AddrBroadcast && p.Dst != packet.AddrCP {
		return
	}

	switch p.Cmd {
	case 0x11: // register
		req, ok := message.ParseRegisterRequest(p.Dat)
		if !ok {
			log.Printf("chargepoint: malformed register request from %s: %q", p.Src, p.Dat)
			return
		}
		a.enqueue(packet.Packet{
			Dst: p.Src,
			Src: packet.AddrCP,
			Cmd: p.Cmd,
			Dat: message.BuildRegisterResponse(req.Serial, byte(packet.AddrCharger), 0x03),
		}, false)
		a.initPhase = Phase1

	case 0x13: // get meter info -> chain into get configuration
		a.enqueue(packet.Packet{
			Dst: p.Src,
			Src: packet.AddrCP,
			Cmd: 0x33,
			Dat: "",
		}, false)

	case 0x21: // heartbeat
		a.enqueue(packet.Packet{Dst: p.Src, Src: packet.AddrCP, Cmd: p.Cmd, Dat: ""}, false)

	case 0x22: // authentication request
		req, ok := message.ParseAuthRequest(p.Dat)
		if !ok {
			log.Printf("chargepoint: malformed auth request from %s: %q", p.Src, p.Dat)
			return
		}
		status := message.AuthStatusDenied
		if req.CardNumber == autoStartCard || a.allowedCards[req.CardNumber] {
			status = message.AuthStatusGranted
		}
		a.enqueue(packet.Packet{
			Dst: p.Src,
			Src: packet.AddrCP,
			Cmd: p.Cmd,
			Dat: message.BuildAuthResponse(status, req.CardNumberLength, req.CardNumber),
		}, false)

	case 0x23: // metering start
		a.enqueue(packet.Packet{
			Dst: p.Src,
			Src: packet.AddrCP,
			Cmd: p.Cmd,
			Dat: message.BuildMeteringStartResponse(0, a.clock.Now()),
		}, false)

	case 0x24: // metering end
		a.enqueue(packet.Packet{Dst: p.Src, Src: packet.AddrCP, Cmd: p.Cmd, Dat: message.BuildMeteringEndResponse()}, false)

	case 0x26: // charger state update
		a.enqueue(packet.Packet{
			Dst: p.Src,
			Src: packet.AddrCP,
			Cmd: p.Cmd,
			Dat: message.BuildStateUpdateResponse(0, a.clock.Now()),
		}, false)

	case 0x31, 0x32, 0x33, 0x34, 0x6B:
		// these are responses to actor-initiated requests: clear the retry flag.
		a.awaitingResponse = false

	case 0x6A: // charging state
		a.enqueue(packet.Packet{Dst: p.Src, Src: packet.AddrCP, Cmd: p.Cmd, Dat: message.BuildChargingStateAck()}, false)
		state, ok := message.ParseChargingState(p.Dat)
		if !ok {
			return
		}
		switch state {
		case message.ChargingStateReady:
			a.enqueue(packet.Packet{
				Dst: p.Src,
				Src: packet.AddrCP,
				Cmd: 0x6B,
				Dat: message.BuildSetCurrentLimit(message.CurrentLimits{Min: 0x3C, L1: 0x3C, L2: 0x3C, L3: 0x3C}),
			}, true)
		case message.ChargingStateCharging:
			a.enqueue(packet.Packet{
				Dst: p.Src,
				Src: packet.AddrCP,
				Cmd: 0x6B,
				Dat: message.BuildSetCurrentLimit(message.CurrentLimits{Min: 0x3C, L1: 0xA0, L2: 0xA0, L3: 0xA0}),
			}, true)
		}

	default:
		// recognized-but-unhandled or entirely unknown opcodes: observed and
		// ignored, per the undocumented-opcode policy.
	}
}

// Tick drives the two time-sensitive behaviors: retransmission of an
// unanswered tracked request, and the post-registration configuration walk.
// Both are gated on elapsed time since the actor's own last send, read
// through the injected clock.
func (a *Actor) Tick() {
	now := a.clock.Now()

	if a.awaitingResponse && now.Sub(a.lastSentAt) >= retransmitAfter {
		a.enqueue(a.lastSent, true)
	}

	if a.initPhase == PhaseIdle {
		return
	}
	if now.Sub(a.lastSentAt) < configureAfter {
		return
	}

	switch a.initPhase {
	case Phase1:
		a.enqueue(packet.Packet{
			Dst: packet.AddrCharger,
			Src: packet.AddrCP,
			Cmd: 0x1B,
			Dat: message.BuildConnectionStateChanged(60, false),
		}, false)
		a.initPhase = Phase2
	case Phase2:
		a.enqueue(packet.Packet{
			Dst: packet.AddrCharger,
			Src: packet.AddrCP,
			Cmd: 0x34,
			Dat: message.BuildSetConfiguration(message.DefaultConfiguration),
		}, true)
		a.initPhase = Phase3
	case Phase3:
		a.initPhase = PhaseIdle
	}
}
