// Package clock supplies the time source the ChargePoint actor reads from,
// so retransmit timers and the registration walk can be driven
// deterministically in tests instead of waiting on a wall clock.
package clock

import "github.com/facebookgo/clock"

// Clock is the facebookgo/clock interface (Now, Sleep, timers and tickers);
// the actor only calls Now.
type Clock = clock.Clock

// Mock is a Clock whose time only advances when told to, for tests.
type Mock = clock.Mock

// New returns a Clock backed by the real wall clock.
func New() Clock {
	return clock.New()
}

// NewMock returns a Mock starting at the Unix epoch. Call Add to advance it.
func NewMock() *Mock {
	return clock.NewMock()
}
