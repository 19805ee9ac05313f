// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// cleanupInterval is how often the background sweep removes expired entries.
const cleanupInterval = 1 * time.Minute

// memoryEntry is one cached value with its expiration instant.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-process TTL store. Writes to the same key are
// last-writer-wins; recomputation is deterministic for identical inputs, so
// concurrent writers racing on a fingerprint store equivalent payloads.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stats   counters
	stop    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory store and starts its cleanup sweep.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.stats.misses.Add(1)
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry meanwhile.
		if cur, exists := m.entries[key]; exists && time.Now().After(cur.expiresAt) {
			delete(m.entries, key)
			m.stats.evictions.Add(1)
		}
		m.mu.Unlock()
		m.stats.misses.Add(1)
		return nil, false, nil
	}

	m.stats.hits.Add(1)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// SetWithTTL implements Store.
func (m *Memory) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: stored, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// DeletePrefix implements Store.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

// Ping implements Store. The in-process store is always reachable.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Stats implements Store.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	keys := int64(len(m.entries))
	m.mu.RUnlock()
	return m.stats.snapshot(keys)
}

// Close stops the cleanup sweep.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Memory) evictExpired() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			m.stats.evictions.Add(1)
		}
	}
}

var _ Store = (*Memory)(nil)
