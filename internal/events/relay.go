// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/models"
)

// Target receives relayed change reasons.
type Target interface {
	Notify(ctx context.Context, reason models.ChangeReason) error
}

// Relay is a suture service that subscribes to the bus and forwards every
// change to Target.
type Relay struct {
	bus    *Bus
	target Target
	logger zerolog.Logger
}

// NewRelay creates a Relay.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRelay(bus *Bus, target Target, logger zerolog.Logger) *Relay {
	return &Relay{
		bus:    bus,
		target: target,
		logger: logger.With().Str("component", "event-relay").Str("topic", bus.topic).Logger(),
	}
}

// Serve implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	messages, err := r.bus.pubsub.Subscribe(ctx, r.bus.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.bus.topic, err)
	}
	r.logger.Info().Msg("Event relay subscribed")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Event relay stopping")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				// Bus closed; nothing left to relay.
				return errors.New("event bus closed")
			}
			reason, err := DecodeReason(msg)
			if err != nil {
				// Redelivery cannot fix a malformed payload.
				r.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed change message")
				msg.Ack()
				continue
			}
			if err := r.target.Notify(ctx, reason); err != nil {
				r.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to relay change, requesting redelivery")
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture.
func (r *Relay) String() string { return "event-relay" }
