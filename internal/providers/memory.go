// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package providers contains SignalProvider implementations and the
// resilience decorators (retry, circuit breaker) that wrap them.
package providers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/creatorlink/matchengine/internal/match"
)

// Memory is an in-process SignalProvider backed by maps. It serves local
// development and tests; production deployments substitute a provider
// backed by the profile services.
type Memory struct {
	mu          sync.RWMutex
	campaigns   map[string]match.CampaignProfile
	influencers map[string]match.InfluencerProfile
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		campaigns:   make(map[string]match.CampaignProfile),
		influencers: make(map[string]match.InfluencerProfile),
	}
}

// PutCampaign stores or replaces a campaign profile, bumping its generation.
func (m *Memory) PutCampaign(c match.CampaignProfile) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.campaigns[c.ID]; ok && c.Generation <= prev.Generation {
		c.Generation = prev.Generation + 1
	}
	if c.Generation == 0 {
		c.Generation = 1
	}
	m.campaigns[c.ID] = c
	return c.Generation
}

// PutInfluencer stores or replaces an influencer profile, bumping its
// generation.
func (m *Memory) PutInfluencer(p match.InfluencerProfile) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.influencers[p.ID]; ok && p.Generation <= prev.Generation {
		p.Generation = prev.Generation + 1
	}
	if p.Generation == 0 {
		p.Generation = 1
	}
	m.influencers[p.ID] = p
	return p.Generation
}

// Campaign implements match.SignalProvider.
func (m *Memory) Campaign(_ context.Context, id string) (*match.CampaignProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, match.Ef(match.KindNotFound, "campaign %s not found", id)
	}
	out := c
	return &out, nil
}

// Influencer implements match.SignalProvider.
func (m *Memory) Influencer(_ context.Context, id string) (*match.InfluencerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.influencers[id]
	if !ok {
		return nil, match.Ef(match.KindNotFound, "influencer %s not found", id)
	}
	out := p
	return &out, nil
}

// Influencers implements match.SignalProvider. Results are filtered by
// niche tag overlap when the query carries tags, sorted by identifier and
// bounded by the query limit.
func (m *Memory) Influencers(_ context.Context, q match.CandidateQuery) ([]match.InfluencerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]match.InfluencerProfile, 0, len(m.influencers))
	for _, p := range m.influencers {
		if len(q.NicheTags) > 0 && !tagsOverlap(q.NicheTags, p.NicheTags) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Campaigns implements match.SignalProvider.
func (m *Memory) Campaigns(_ context.Context, q match.CandidateQuery) ([]match.CampaignProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]match.CampaignProfile, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		if len(q.NicheTags) > 0 && !tagsOverlap(q.NicheTags, c.NicheTags) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Ping implements match.SignalProvider.
func (m *Memory) Ping(_ context.Context) error { return nil }

// tagsOverlap matches case-insensitively so provider prefiltering agrees
// with the scorer's tag handling.
func tagsOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

var _ match.SignalProvider = (*Memory)(nil)
