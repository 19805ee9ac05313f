// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package cache provides the result cache backends for the matching engine.
package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Store is the key-value contract the engine caches ranked results and
// explanations against: get, set-with-TTL, delete, and prefix-based bulk
// delete for invalidation. Implementations must be safe for concurrent use.
//
// A Store failure is never fatal to a request: the engine degrades to
// compute-fresh and skips caching.
type Store interface {
	// Get retrieves a value. The second return is false on a miss or an
	// expired entry; the error is reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix and returns the
	// number of removed entries.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error

	// Stats returns a snapshot of cache counters.
	Stats() Stats

	// Close releases backend resources.
	Close() error
}

// Backend selects a Store implementation.
type Backend string

const (
	// BackendMemory is the in-process TTL map store (default).
	BackendMemory Backend = "memory"
	// BackendBadger is the persistent BadgerDB store.
	BackendBadger Backend = "badger"
)

// Stats is a snapshot of cache performance counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Keys      int64 `json:"keys"`
}

// counters tracks hit/miss/eviction totals for a store.
type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot(keys int64) Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Keys:      keys,
	}
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
