// Package telemetry publishes bus observations to Redis, for anyone who
// wants to watch a charging session without tailing process logs. It is
// entirely optional: the I/O loop runs fine with a nil Observer.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys used on the Redis side. A single hash holds the latest observed
// value per field; a single channel carries a feed of human-readable lines
// for anything that wants to tail the conversation live.
const (
	StateKey   = "chargepoint:state"
	EventsChan = "chargepoint:events"
)

// Publisher pushes bus activity to Redis: the latest state fields land in a
// hash, and every observed packet is also published as a line of text on a
// channel for live tailing.
type Publisher struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to a Redis server at addr and verifies the connection with a
// ping before returning.
func New(addr, password string, db int) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: connect to redis: %w", err)
	}

	return &Publisher{client: client, ctx: ctx}, nil
}

// PacketObserved records one decoded packet's summary line and bumps a
// running exchange counter, both in a single pipelined round trip.
func (p *Publisher) PacketObserved(summary string) error {
	pipe := p.client.Pipeline()
	pipe.HSet(p.ctx, StateKey, "last_packet", summary)
	pipe.HSet(p.ctx, StateKey, "last_packet_at", time.Now().UTC().Format(time.RFC3339))
	pipe.HIncrBy(p.ctx, StateKey, "exchange_count", 1)
	pipe.Publish(p.ctx, EventsChan, summary)
	_, err := pipe.Exec(p.ctx)
	return err
}

// PhaseChanged records the actor's current post-registration phase.
func (p *Publisher) PhaseChanged(phase string) error {
	return p.client.HSet(p.ctx, StateKey, "phase", phase).Err()
}

// FrameError records a malformed frame the scanner had to discard.
func (p *Publisher) FrameError(summary string) error {
	pipe := p.client.Pipeline()
	pipe.HSet(p.ctx, StateKey, "last_frame_error", summary)
	pipe.HIncrBy(p.ctx, StateKey, "frame_error_count", 1)
	pipe.Publish(p.ctx, EventsChan, "frame error: "+summary)
	_, err := pipe.Exec(p.ctx)
	return err
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Observer adapts Publisher to link.Loop's Observer interface: errors are
// logged rather than propagated, since a telemetry hiccup should never stall
// bus traffic.
type Observer struct {
	Publisher *Publisher
}

func (o Observer) PacketObserved(summary string) {
	if err := o.Publisher.PacketObserved(summary); err != nil {
		log.Printf("telemetry: publish packet observation: %v", err)
	}
}

func (o Observer) FrameError(summary string) {
	if err := o.Publisher.FrameError(summary); err != nil {
		log.Printf("telemetry: publish frame error: %v", err)
	}
}
