// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NATSConfig holds JetStream subscriber settings.
type NATSConfig struct {
	// URL is the NATS server address, e.g. nats://localhost:4222.
	URL string `koanf:"url"`

	// AckWait is how long JetStream waits for an ack before redelivery.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxReconnects bounds reconnection attempts; -1 retries forever.
	MaxReconnects int `koanf:"max_reconnects"`

	// ReconnectWait is the delay between reconnection attempts.
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// DefaultNATSConfig returns production defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		AckWait:       30 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// subscriberConfig builds the watermill subscriber settings for profile
// change consumption. The result cache is process-local, so every engine
// instance must see every event: no queue group (a queue group would
// deliver each event to a single group member, leaving the other
// instances' caches stale) and no durable (each instance runs its own
// ephemeral DeliverNew consumer; events missed during a restart are
// covered by entry TTL and the generation checks on read).
func subscriberConfig(cfg NATSConfig, natsOpts []natsgo.Option) wmNats.SubscriberConfig {
	return wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: "",
		AckWaitTimeout:   cfg.AckWait,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.AckWait(cfg.AckWait),
				natsgo.DeliverNew(),
			},
			DurablePrefix: "",
		},
	}
}

// NewNATSSubscriber creates a JetStream subscriber for profile change
// events with broadcast semantics: every engine instance receives every
// event and invalidates its own cache.
func NewNATSSubscriber(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("nats subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	sub, err := wmNats.NewSubscriber(subscriberConfig(cfg, natsOpts), logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return sub, nil
}
