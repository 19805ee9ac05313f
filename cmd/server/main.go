// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package main is the entry point for the matchengine server.
//
// Matchengine matches SME marketing campaigns to influencer/KOC creators:
// it scores candidate creators on niche overlap, audience fit, budget fit,
// reliability and engagement, serves ranked top-K lists with per-factor
// explanations, and caches results with event-driven invalidation.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layering (defaults, config.yaml, MATCH_* env)
//  2. Logging: global zerolog logger
//  3. Result cache: in-memory TTL store or persistent BadgerDB
//  4. Signal provider: profile source wrapped in retry and circuit breaker
//  5. Matching service: scoring weights validated, fail-fast on violation
//  6. Event consumer: profile change events over NATS JetStream or local
//  7. HTTP API under a Suture supervisor tree
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the event consumer unsubscribes, and the cache
// backend closes cleanly.
//
// # Example Usage
//
// Local mode with demo profiles:
//
//	export MATCH_DEMO_SEED=true
//	./matchengine
//
// Persistent cache and NATS invalidation:
//
//	export MATCH_CACHE_BACKEND=badger
//	export MATCH_CACHE_PATH=/data/matchengine/cache
//	export MATCH_EVENTS_TRANSPORT=nats
//	export MATCH_EVENTS_NATS_URL=nats://localhost:4222
//	./matchengine
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/api"
	"github.com/creatorlink/matchengine/internal/cache"
	"github.com/creatorlink/matchengine/internal/config"
	"github.com/creatorlink/matchengine/internal/events"
	"github.com/creatorlink/matchengine/internal/logging"
	"github.com/creatorlink/matchengine/internal/match"
	"github.com/creatorlink/matchengine/internal/providers"
	"github.com/creatorlink/matchengine/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(cfg.Logging)
	logger := logging.Logger()
	logger.Info().
		Str("addr", cfg.Server.Addr()).
		Str("cache_backend", string(cfg.Cache.Backend)).
		Str("weights_version", cfg.Match.Weights.Version()).
		Msg("matchengine starting")

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache store close failed")
		}
	}()

	provider := newProvider(logger)

	svc, err := match.NewService(&cfg.Match, provider, store, logger)
	if err != nil {
		return err
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if cfg.Events.Enabled {
		sub, err := newSubscriber(cfg)
		if err != nil {
			return err
		}
		tree.AddMessagingService(events.NewConsumer(sub, svc, logger))
	}

	handler := api.NewHandler(svc, logger)
	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handler, api.RouterConfig{
			CORSOrigins:     cfg.Server.CORSOrigins,
			RateLimitReqs:   cfg.Server.RateLimitReqs,
			RateLimitWindow: cfg.Server.RateLimitWindow,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("matchengine running")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("matchengine stopped")
	return nil
}

func newStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case cache.BackendBadger:
		return cache.NewBadger(cfg.Cache.Path, logging.Logger())
	default:
		return cache.NewMemory(), nil
	}
}

// newProvider assembles the signal provider chain: the profile source
// wrapped in a retry layer and a circuit breaker.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newProvider(logger zerolog.Logger) match.SignalProvider {
	source := providers.NewMemory()
	if os.Getenv("MATCH_DEMO_SEED") == "true" {
		seedDemoProfiles(source)
		logger.Info().Msg("demo profiles seeded")
	}

	retried := providers.NewRetry(source, 1, 50*time.Millisecond, logger)
	return providers.NewBreaker(retried, "profile-store", logger)
}

func newSubscriber(cfg *config.Config) (message.Subscriber, error) {
	logger := events.NewWatermillLogger(logging.Logger())
	if cfg.Events.Transport == "nats" {
		return events.NewNATSSubscriber(cfg.Events.NATS, logger)
	}
	return events.NewLocalPubSub(logger), nil
}
