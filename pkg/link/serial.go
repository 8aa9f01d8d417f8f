// Package link owns the bus-facing side of the system: the serial transport,
// capture-to-file and replay-from-file collaborators, and the polling loop
// that ties a byte source to a frame.Scanner and a chargepoint.Actor.
package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// idleBeforeSend is the minimum bus-idle time this link waits before writing,
// per the RS-485 half-duplex bus's timing requirement.
const idleBeforeSend = 100 * time.Millisecond

// Port is the minimal byte-stream interface the loop needs from a transport.
// SerialPort satisfies it.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// SerialPort wraps go.bug.st/serial configured for this bus: 38400 baud,
// 8N1, no flow control, RS485 half-duplex framing with no extra
// pre/post-transmit delay of its own (the loop already waits idleBeforeSend
// before every write).
type SerialPort struct {
	port serial.Port
}

// OpenSerial opens device for RS-485 half-duplex communication at the fixed
// bus speed.
func OpenSerial(device string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: 38400,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", device, err)
	}
	if err := port.SetRS485Config(&serial.RS485Config{
		Enabled:            true,
		DelayRtsBeforeSend: 0,
		DelayRtsAfterSend:  0,
	}); err != nil {
		// Not every USB-RS485 adapter exposes kernel RS485 configuration;
		// the bus still works over plain half-duplex wiring without it.
		fmt.Printf("link: RS485 mode unavailable on %s, continuing without it: %v\n", device, err)
	}
	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("link: set read timeout on %s: %w", device, err)
	}
	return &SerialPort{port: port}, nil
}

func (s *SerialPort) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialPort) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialPort) Close() error                { return s.port.Close() }

// IdleBeforeSend is the bus's required pre-transmit idle window.
func IdleBeforeSend() time.Duration { return idleBeforeSend }
