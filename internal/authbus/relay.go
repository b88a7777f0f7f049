// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package authbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Valkey pub/sub channel carrying auth events.
const DefaultChannel = "auth:changed"

// Relay carries auth events between server instances through Valkey
// pub/sub. Events published through the relay reach the local bus via
// the subscription too, so every instance sees them exactly once.
type Relay struct {
	client  *redis.Client
	bus     *Bus
	channel string
}

// NewRelay creates a relay that forwards events on channel into bus.
func NewRelay(client *redis.Client, bus *Bus, channel string) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{client: client, bus: bus, channel: channel}
}

// Publish sends e to every instance. It implements Publisher.
func (r *Relay) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("auth event marshal: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("auth event publish: %w", err)
	}
	return nil
}

// Run subscribes to the channel and forwards events to the local bus
// until ctx is done. It blocks; run it in its own goroutine.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("auth relay subscribe: %w", err)
	}
	slog.Info("auth relay subscribed", "channel", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				slog.Warn("auth relay dropped malformed event", "error", err)
				continue
			}
			r.bus.Publish(ctx, e)
		}
	}
}
