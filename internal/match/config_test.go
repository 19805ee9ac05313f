// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("validates", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("default config should validate: %v", err)
		}
	})

	t.Run("weights sum to exactly 1", func(t *testing.T) {
		if diff := math.Abs(cfg.Weights.Sum() - 1.0); diff > weightSumTolerance {
			t.Errorf("weight sum %f deviates by %g", cfg.Weights.Sum(), diff)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights not summing to 1", func(c *Config) { c.Weights.Engagement = 0.2 }},
		{"negative weight", func(c *Config) { c.Weights.NicheOverlap = -0.1; c.Weights.AudienceFit = 0.65 }},
		{"zero half-life", func(c *Config) { c.Scoring.ReliabilityHalfLife = 0 }},
		{"saturation above 1", func(c *Config) { c.Scoring.EngagementSaturation = 1.5 }},
		{"zero pool size", func(c *Config) { c.Candidates.MaxPoolSize = 0 }},
		{"max_k below default_k", func(c *Config) { c.Limits.MaxK = 5; c.Limits.DefaultK = 10 }},
		{"zero concurrency", func(c *Config) { c.Limits.MaxConcurrentRanks = 0 }},
		{"zero request budget", func(c *Config) { c.Limits.RequestBudget = 0 }},
		{"zero cache ttl with cache enabled", func(c *Config) { c.Cache.TTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if KindOf(err) != KindConfiguration {
				t.Errorf("expected CONFIGURATION kind, got %s", KindOf(err))
			}
		})
	}

	t.Run("cache disabled skips ttl check", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Enabled = false
		cfg.Cache.TTL = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("disabled cache should not require ttl: %v", err)
		}
	})
}

func TestWeightsVersion(t *testing.T) {
	a := DefaultConfig().Weights
	b := a
	b.NicheOverlap = 0.25
	b.AudienceFit = 0.30

	if a.Version() == b.Version() {
		t.Error("different weight tunings must produce different versions")
	}
	if a.Version() != DefaultConfig().Weights.Version() {
		t.Error("identical weights must produce identical versions")
	}
	if len(a.Version()) != 16 {
		t.Errorf("version should be a 16-char hex hash, got %q", a.Version())
	}
}
