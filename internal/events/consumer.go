// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/match"
	"github.com/creatorlink/matchengine/internal/metrics"
)

// Invalidator receives profile changes decoded from the event stream.
// Satisfied by the match.Service.
type Invalidator interface {
	Invalidate(profileID string, kind match.ProfileKind, generation int64)
}

// Consumer subscribes to profile change events and applies cache
// invalidations. It implements suture.Service and runs under the
// supervisor tree.
type Consumer struct {
	subscriber  message.Subscriber
	invalidator Invalidator
	topic       string
	logger      zerolog.Logger
}

// NewConsumer creates a consumer on the given subscriber.
func NewConsumer(sub message.Subscriber, inv Invalidator, logger zerolog.Logger) *Consumer {
	return &Consumer{
		subscriber:  sub,
		invalidator: inv,
		topic:       TopicProfileChanged,
		logger:      logger.With().Str("service", "events-consumer").Logger(),
	}
}

// Serve implements the suture.Service interface. It blocks until the
// context is canceled or the subscription channel closes; the supervisor
// restarts it on failure.
func (c *Consumer) Serve(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	c.logger.Info().Str("topic", c.topic).Msg("profile event consumer running")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("profile event consumer shutting down")
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn().Msg("subscription channel closed")
				return nil
			}
			c.handle(msg)
		}
	}
}

func (c *Consumer) handle(msg *message.Message) {
	p, err := Decode(msg)
	if err != nil || !p.Valid() {
		// Poison messages are acked and dropped; redelivery cannot make
		// them decodable.
		c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable profile event")
		metrics.EventsProcessed.WithLabelValues("decode_error").Inc()
		msg.Ack()
		return
	}

	c.invalidator.Invalidate(p.ProfileID, p.Kind, p.Generation)
	metrics.EventsProcessed.WithLabelValues("ok").Inc()
	c.logger.Debug().
		Str("profile_id", p.ProfileID).
		Str("kind", string(p.Kind)).
		Int64("generation", p.Generation).
		Msg("profile change applied")
	msg.Ack()
}

// String implements fmt.Stringer for supervisor logs.
func (c *Consumer) String() string { return "events-consumer" }
