// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Generator narrows the influencer universe to a bounded candidate set
// before any scoring happens. Prefilters are cheap set and window checks;
// the expensive per-pair scoring only ever sees survivors.
type Generator struct {
	provider SignalProvider
	cfg      CandidatesConfig
	logger   zerolog.Logger
}

// NewGenerator creates a candidate generator.
func NewGenerator(provider SignalProvider, cfg CandidatesConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "candidates").Logger(),
	}
}

// Generate returns the prefiltered candidate set for a campaign, bounded to
// poolSize (or the configured maximum if poolSize is zero or larger).
// An empty result is valid, not an error: it yields an empty ranking.
func (g *Generator) Generate(ctx context.Context, campaign *CampaignProfile, poolSize int) ([]InfluencerProfile, error) {
	limit := g.cfg.MaxPoolSize
	if poolSize > 0 && poolSize < limit {
		limit = poolSize
	}

	// Push the tag restriction down to the provider so the universe the
	// engine sees is already niche-relevant.
	profiles, err := g.provider.Influencers(ctx, CandidateQuery{
		NicheTags: campaign.NicheTags,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list influencers: %w", err)
	}

	survivors := make([]InfluencerProfile, 0, len(profiles))
	for i := range profiles {
		if g.admit(campaign, &profiles[i]) {
			survivors = append(survivors, profiles[i])
		}
	}

	// Deterministic pool composition regardless of provider ordering.
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].ID < survivors[j].ID
	})
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	g.logger.Debug().
		Str("campaign_id", campaign.ID).
		Int("listed", len(profiles)).
		Int("survivors", len(survivors)).
		Msg("candidate prefiltering complete")

	return survivors, nil
}

// admit applies the cheap prefilters: ACTIVE status, non-empty niche
// intersection, availability overlapping the campaign timeline.
func (g *Generator) admit(campaign *CampaignProfile, inf *InfluencerProfile) bool {
	if inf.Status != InfluencerActive {
		return false
	}
	if intersectionSize(campaign.NicheTags, inf.NicheTags) == 0 {
		return false
	}
	if !inf.Availability.Overlaps(campaign.Timeline) {
		return false
	}
	return true
}

/// GenerateCampaigns is the reverse direction: active campaigns matching an
// influencer, for campaigns-for-creator recommendations.
func (g *Generator) GenerateCampaigns(ctx context.Context, inf *InfluencerProfile, poolSize int) ([]CampaignProfile, error) {
	limit := g.cfg.MaxPoolSize
	if poolSize > 0 && poolSize < limit {
		limit = poolSize
	}

	campaigns, err := g.provider.Campaigns(ctx, CandidateQuery{
		NicheTags: inf.NicheTags,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	survivors := make([]CampaignProfile, 0, len(campaigns))
	for i := range campaigns {
		c := &campaigns[i]
		if c.Status != CampaignActive {
			continue
		}
		if intersectionSize(c.NicheTags, inf.NicheTags) == 0 {
			continue
		}
		if !c.Timeline.Overlaps(inf.Availability) {
			continue
		}
		survivors = append(survivors, campaigns[i])
	}

	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].ID < survivors[j].ID
	})
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	return survivors, nil
}
