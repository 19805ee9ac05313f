// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package config loads and validates service configuration from defaults,
// an optional YAML file and environment variables, in that order of
// precedence (env highest).
package config

import (
	"fmt"
	"time"

	"github.com/creatorlink/matchengine/internal/cache"
	"github.com/creatorlink/matchengine/internal/events"
	"github.com/creatorlink/matchengine/internal/logging"
	"github.com/creatorlink/matchengine/internal/match"
)

// Config is the root service configuration.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `koanf:"server"`

	// Logging configures the global logger.
	Logging logging.Config `koanf:"logging"`

	// Cache selects and configures the result cache backend. Entry TTL
	// and fingerprint bucketing live under match.cache.
	Cache CacheConfig `koanf:"cache"`

	// Events configures profile change event consumption.
	Events EventsConfig `koanf:"events"`

	// Match configures the matching engine itself.
	Match match.Config `koanf:"match"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0.
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8480.
	Port int `koanf:"port"`

	// ReadTimeout bounds request header and body reads.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds response writes. Must exceed the match request
	// budget or long rankings are cut off mid-response.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request allowance per window; 0 disables
	// rate limiting.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	// Backend is "memory" or "badger". Default: memory.
	Backend cache.Backend `koanf:"backend"`

	// Path is the badger data directory; unused by the memory backend.
	Path string `koanf:"path"`
}

// EventsConfig configures profile change event consumption.
type EventsConfig struct {
	// Enabled controls whether the consumer runs at all. Without it,
	// cache entries lapse by TTL only.
	Enabled bool `koanf:"enabled"`

	// Transport is "nats" or "local". Default: local.
	Transport string `koanf:"transport"`

	// NATS configures the JetStream subscriber when Transport is "nats".
	NATS events.NATSConfig `koanf:"nats"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: logging.DefaultConfig(),
		Cache: CacheConfig{
			Backend: cache.BackendMemory,
			Path:    "/data/matchengine/cache",
		},
		Events: EventsConfig{
			Enabled:   true,
			Transport: "local",
			NATS:      events.DefaultNATSConfig(),
		},
		Match: *match.DefaultConfig(),
	}
}

// Validate checks cross-section constraints and delegates engine checks to
// the match config.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.WriteTimeout < c.Match.Limits.RequestBudget {
		return fmt.Errorf("server.write_timeout (%v) must be >= match.limits.request_budget (%v)",
			c.Server.WriteTimeout, c.Match.Limits.RequestBudget)
	}

	switch c.Cache.Backend {
	case cache.BackendMemory:
	case cache.BackendBadger:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the badger backend")
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q",
			cache.BackendMemory, cache.BackendBadger, c.Cache.Backend)
	}

	if c.Events.Enabled {
		switch c.Events.Transport {
		case "local":
		case "nats":
			if c.Events.NATS.URL == "" {
				return fmt.Errorf("events.nats.url is required for the nats transport")
			}
		default:
			return fmt.Errorf("events.transport must be \"nats\" or \"local\", got %q", c.Events.Transport)
		}
	}

	return c.Match.Validate()
}
