package link

import (
	"log"
	"time"

	"github.com/geekabit/evbox-chargepoint/pkg/chargepoint"
	"github.com/geekabit/evbox-chargepoint/pkg/frame"
	"github.com/geekabit/evbox-chargepoint/pkg/message"
	"github.com/geekabit/evbox-chargepoint/pkg/packet"
)

const pollInterval = 10 * time.Millisecond

// Observer receives a rendered summary for every decoded packet and every
// discarded/malformed frame. telemetry.Observer implements it; a nil
// Observer is a valid no-op.
type Observer interface {
	PacketObserved(summary string)
	FrameError(summary string)
}

// Loop drives the single-threaded read/respond/send cycle described for the
// ChargePoint role: read whatever bytes are available, scan them into
// frames, hand decoded packets to the actor, then drain and send whatever
// the actor queued, pacing every send behind the bus's idle requirement.
type Loop struct {
	port    Port
	actor   *chargepoint.Actor
	capture *CaptureWriter
	observe Observer
	monitor bool

	scanner frame.Scanner
	readBuf []byte
}

// NewLoop builds a Loop. capture and observe may both be nil. When monitor
// is true, decoded packets are still described to the observer but are
// never handed to the actor, and the loop never writes anything back to port.
func NewLoop(port Port, actor *chargepoint.Actor, capture *CaptureWriter, observe Observer, monitor bool) *Loop {
	return &Loop{
		port:    port,
		actor:   actor,
		capture: capture,
		observe: observe,
		monitor: monitor,
		readBuf: make([]byte, 4096),
	}
}

// RunOnce performs one iteration of the loop: drain the port, dispatch any
// decoded packets, drain the outbox, sleep the poll interval, tick the
// actor, then drain the outbox once more. It returns the number of bytes
// read, for callers that want to detect a dead link.
func (l *Loop) RunOnce() (int, error) {
	n, err := l.port.Read(l.readBuf)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		data := append([]byte(nil), l.readBuf[:n]...)
		if l.capture != nil {
			l.capture.Record("received", data)
		}
		l.ingest(data)
		l.drainOutbox()
	}

	time.Sleep(pollInterval)

	l.actor.Tick()
	l.drainOutbox()

	return n, nil
}

// Feed runs the scanner over one chunk of already-captured data and, unless
// the loop is in monitor mode, hands decoded packets to the actor. It does
// not touch the port or the clock and does not drain the outbox. Used by
// replay.
func (l *Loop) Feed(data []byte) {
	l.ingest(data)
}

func (l *Loop) ingest(data []byte) {
	for _, result := range l.scanner.Feed(data) {
		switch {
		case result.Discarded != nil:
			if l.observe != nil {
				l.observe.FrameError("discarded bytes before start-of-frame")
			}
		case result.Err != nil:
			log.Printf("link: malformed frame: %v", result.Err)
			if l.observe != nil {
				l.observe.FrameError(result.Err.Error())
			}
		default:
			p, err := packet.Decode(result.Payload)
			if err != nil {
				log.Printf("link: malformed packet: %v", err)
				continue
			}
			if l.observe != nil {
				l.observe.PacketObserved(describeSummary(p))
			}
			if !l.monitor {
				l.actor.Respond(p)
			}
		}
	}
}

func describeSummary(p packet.Packet) string {
	obs := message.Describe(p.Dst, p.Src, p.Cmd, p.Dat)
	for _, w := range obs.Warnings {
		log.Printf("link: payload warning for cmd %02X: %s", p.Cmd, w)
	}
	return obs.Summary
}

func (l *Loop) drainOutbox() {
	if l.monitor {
		l.actor.Outbox() // discard: monitor mode never writes to the bus
		return
	}
	for _, p := range l.actor.Outbox() {
		payload := p.Encode()
		raw, err := frame.Encode(payload)
		if err != nil {
			log.Printf("link: refusing to send an unencodable packet: %v", err)
			continue
		}
		time.Sleep(idleBeforeSend)
		if _, err := l.port.Write(raw); err != nil {
			log.Printf("link: write error: %v", err)
			continue
		}
		if l.capture != nil {
			l.capture.Record("sending", raw)
		}
	}
}
