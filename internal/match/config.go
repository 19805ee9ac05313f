// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"fmt"
	"hash/fnv"
	"math"
	"time"
)

// weightSumTolerance bounds the allowed deviation of the factor weight sum
// from 1.0 before startup fails.
const weightSumTolerance = 1e-9

// Config contains all configuration for the matching engine.
type Config struct {
	// Weights defines the contribution of each scoring factor.
	// Must sum to exactly 1.0; validated once at startup.
	Weights Weights `json:"weights" koanf:"weights"`

	// Scoring contains factor computation parameters.
	Scoring ScoringConfig `json:"scoring" koanf:"scoring"`

	// Candidates contains candidate generation parameters.
	Candidates CandidatesConfig `json:"candidates" koanf:"candidates"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains result caching parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// Weights defines the contribution of each scoring factor.
// Unlike ensemble weights that get normalized at runtime, these are a
// contract: the request fails fast at startup if they do not sum to 1.0.
type Weights struct {
	// NicheOverlap weighs Jaccard similarity of niche tag sets.
	NicheOverlap float64 `json:"niche_overlap" koanf:"niche_overlap"`

	// AudienceFit weighs demographic similarity.
	AudienceFit float64 `json:"audience_fit" koanf:"audience_fit"`

	// BudgetFit weighs rate-within-budget fit.
	BudgetFit float64 `json:"budget_fit" koanf:"budget_fit"`

	// Reliability weighs recency-weighted past-collaboration outcomes.
	Reliability float64 `json:"reliability" koanf:"reliability"`

	// Engagement weighs pool-normalized historical engagement rate.
	Engagement float64 `json:"engagement" koanf:"engagement"`
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.NicheOverlap + w.AudienceFit + w.BudgetFit + w.Reliability + w.Engagement
}

// For returns the weight of the named factor.
func (w Weights) For(name string) float64 {
	switch name {
	case FactorNicheOverlap:
		return w.NicheOverlap
	case FactorAudienceFit:
		return w.AudienceFit
	case FactorBudgetFit:
		return w.BudgetFit
	case FactorReliability:
		return w.Reliability
	case FactorEngagement:
		return w.Engagement
	default:
		return 0
	}
}

// Version returns a stable hash of the weight values. Any tuning change
// produces a new version, re-keying every cache fingerprint that depends
// on the weight configuration.
func (w Weights) Version() string {
	h := fnv.New64a()
	for _, name := range FactorNames {
		fmt.Fprintf(h, "%s=%.9f;", name, w.For(name))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// ScoringConfig contains factor computation parameters.
type ScoringConfig struct {
	// ReliabilityHalfLife is the exponential decay half-life applied to
	// past-collaboration outcome scores.
	// Default: 180 days.
	ReliabilityHalfLife time.Duration `json:"reliability_half_life" koanf:"reliability_half_life"`

	// EngagementSaturation is the engagement rate treated as 1.0 when no
	// pool bounds are available (single-pair explanations).
	// Default: 0.10 (10%).
	EngagementSaturation float64 `json:"engagement_saturation" koanf:"engagement_saturation"`
}

// CandidatesConfig contains candidate generation parameters.
type CandidatesConfig struct {
	// MaxPoolSize bounds the candidate set scored per request.
	// Default: 500.
	MaxPoolSize int `json:"max_pool_size" koanf:"max_pool_size"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultK is the default list length.
	// Default: 10.
	DefaultK int `json:"default_k" koanf:"default_k"`

	// MaxK is the maximum allowed list length.
	// Default: 100.
	MaxK int `json:"max_k" koanf:"max_k"`

	// MaxConcurrentRanks caps simultaneous full-pool scoring runs.
	// Default: 8.
	MaxConcurrentRanks int `json:"max_concurrent_ranks" koanf:"max_concurrent_ranks"`

	// AcquireTimeout bounds how long a request waits for a ranking slot
	// before failing with Overloaded.
	// Default: 2s.
	AcquireTimeout time.Duration `json:"acquire_timeout" koanf:"acquire_timeout"`

	// RequestBudget is the whole-request deadline.
	// Default: 10s.
	RequestBudget time.Duration `json:"request_budget" koanf:"request_budget"`

	// ProviderTimeout bounds each signal-provider call.
	// Default: 1500ms.
	ProviderTimeout time.Duration `json:"provider_timeout" koanf:"provider_timeout"`

	// ScoringParallelism bounds the per-request candidate fan-out.
	// Default: 16.
	ScoringParallelism int `json:"scoring_parallelism" koanf:"scoring_parallelism"`
}

// CacheConfig contains result caching parameters.
type CacheConfig struct {
	// Enabled controls whether results are cached.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// TimeBucket is the coarse timestamp bucket folded into fingerprints.
	// Default: 5m.
	TimeBucket time.Duration `json:"time_bucket" koanf:"time_bucket"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			NicheOverlap: 0.30,
			AudienceFit:  0.25,
			BudgetFit:    0.20,
			Reliability:  0.15,
			Engagement:   0.10,
		},
		Scoring: ScoringConfig{
			ReliabilityHalfLife:  180 * 24 * time.Hour,
			EngagementSaturation: 0.10,
		},
		Candidates: CandidatesConfig{
			MaxPoolSize: 500,
		},
		Limits: LimitsConfig{
			DefaultK:           10,
			MaxK:               100,
			MaxConcurrentRanks: 8,
			AcquireTimeout:     2 * time.Second,
			RequestBudget:      10 * time.Second,
			ProviderTimeout:    1500 * time.Millisecond,
			ScoringParallelism: 16,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			TimeBucket: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration. A violation here is a
// ConfigurationError: it aborts startup and can never occur at request time.
func (c *Config) Validate() error {
	for _, name := range FactorNames {
		w := c.Weights.For(name)
		if w < 0 || w > 1 {
			return Ef(KindConfiguration, "weight %s must be in [0, 1], got %f", name, w)
		}
	}
	if diff := math.Abs(c.Weights.Sum() - 1.0); diff > weightSumTolerance {
		return Ef(KindConfiguration, "factor weights must sum to 1.0, got %.12f", c.Weights.Sum())
	}

	if c.Scoring.ReliabilityHalfLife <= 0 {
		return Ef(KindConfiguration, "scoring.reliability_half_life must be positive, got %v", c.Scoring.ReliabilityHalfLife)
	}
	if c.Scoring.EngagementSaturation <= 0 || c.Scoring.EngagementSaturation > 1 {
		return Ef(KindConfiguration, "scoring.engagement_saturation must be in (0, 1], got %f", c.Scoring.EngagementSaturation)
	}

	if c.Candidates.MaxPoolSize < 1 {
		return Ef(KindConfiguration, "candidates.max_pool_size must be positive, got %d", c.Candidates.MaxPoolSize)
	}

	if c.Limits.DefaultK < 1 {
		return Ef(KindConfiguration, "limits.default_k must be positive, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return Ef(KindConfiguration, "limits.max_k must be >= limits.default_k, got %d < %d", c.Limits.MaxK, c.Limits.DefaultK)
	}
	if c.Limits.MaxConcurrentRanks < 1 {
		return Ef(KindConfiguration, "limits.max_concurrent_ranks must be positive, got %d", c.Limits.MaxConcurrentRanks)
	}
	if c.Limits.ScoringParallelism < 1 {
		return Ef(KindConfiguration, "limits.scoring_parallelism must be positive, got %d", c.Limits.ScoringParallelism)
	}
	if c.Limits.RequestBudget <= 0 {
		return Ef(KindConfiguration, "limits.request_budget must be positive, got %v", c.Limits.RequestBudget)
	}
	if c.Limits.ProviderTimeout <= 0 {
		return Ef(KindConfiguration, "limits.provider_timeout must be positive, got %v", c.Limits.ProviderTimeout)
	}
	if c.Limits.AcquireTimeout <= 0 {
		return Ef(KindConfiguration, "limits.acquire_timeout must be positive, got %v", c.Limits.AcquireTimeout)
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return Ef(KindConfiguration, "cache.ttl must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.TimeBucket <= 0 {
			return Ef(KindConfiguration, "cache.time_bucket must be positive, got %v", c.Cache.TimeBucket)
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	cp := *c
	return &cp
}
