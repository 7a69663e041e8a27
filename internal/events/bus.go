// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package events carries change notifications over an in-process watermill
// bus. The Publisher stands in for the scheduler as the watcher's notifier and
// the Relay delivers each message to the scheduler, so other producers can
// publish changes on the same topic.
//
// Publishing blocks until the Relay acknowledges, which keeps notifications
// in order and pushes back on producers while the scheduler queue is full.
// The gochannel pub/sub is not persistent: messages published before the
// Relay subscribes are dropped. The watcher's first poll only sets a
// baseline, which leaves the Relay a full interval to subscribe.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/config"
	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/models"
)

// Metadata keys set on every change message.
const (
	MetadataKind  = "kind"
	MetadataRunID = "run_id"
)

// ErrInvalidPayload is returned for messages that do not decode to a
// ChangeReason.
var ErrInvalidPayload = errors.New("invalid change payload")

// Bus owns the pub/sub channel.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
	logger watermill.LoggerAdapter
}

// NewBus creates the bus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(cfg config.EventsConfig, logger zerolog.Logger) *Bus {
	wmLogger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandler(
		logger.With().Str("component", "events").Logger(),
	)))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            cfg.Buffer,
			BlockPublishUntilSubscriberAck: true,
		}, wmLogger),
		topic:  cfg.Topic,
		logger: wmLogger,
	}
}

// Topic returns the topic change messages are published to.
func (b *Bus) Topic() string { return b.topic }

// Close closes the pub/sub; subscriptions end.
func (b *Bus) Close() error { return b.pubsub.Close() }

// Publisher returns a notifier that publishes to the bus.
func (b *Bus) Publisher() *Publisher { return &Publisher{bus: b} }

// Publisher implements the watcher's Notifier by publishing a message.
type Publisher struct {
	bus *Bus
}

// Notify publishes reason as a JSON message.
func (p *Publisher) Notify(ctx context.Context, reason models.ChangeReason) error {
	msg, err := EncodeReason(reason)
	if err != nil {
		return err
	}
	if id := logging.RunIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRunID, id)
	}
	msg.SetContext(ctx)
	if err := p.bus.pubsub.Publish(p.bus.topic, msg); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// EncodeReason builds a message carrying reason.
func EncodeReason(reason models.ChangeReason) (*message.Message, error) {
	payload, err := json.Marshal(reason)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataKind, reason.Kind)
	return msg, nil
}

// DecodeReason reads a ChangeReason from msg.
func DecodeReason(msg *message.Message) (models.ChangeReason, error) {
	var reason models.ChangeReason
	if err := json.Unmarshal(msg.Payload, &reason); err != nil {
		return reason, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if reason.Kind == "" {
		return reason, fmt.Errorf("%w: missing kind", ErrInvalidPayload)
	}
	return reason, nil
}
