// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package main

import (
	"time"

	"github.com/creatorlink/matchengine/internal/match"
	"github.com/creatorlink/matchengine/internal/providers"
)

// seedDemoProfiles loads a small set of campaigns and creators so the API
// is explorable out of the box. Enabled with MATCH_DEMO_SEED=true.
func seedDemoProfiles(p *providers.Memory) {
	now := time.Now()

	p.PutCampaign(match.CampaignProfile{
		ID:        "cmp-skincare-launch",
		NicheTags: []string{"beauty", "skincare"},
		Audience: match.Audience{
			Ages:      match.AgeRange{Min: 18, Max: 34},
			Geos:      []string{"US", "CA"},
			Interests: []string{"skincare", "selfcare"},
		},
		BudgetMinCents: 50_000,
		BudgetMaxCents: 200_000,
		Formats:        []string{"short_video", "story"},
		Status:         match.CampaignActive,
		Timeline:       match.TimeWindow{Start: now, End: now.AddDate(0, 2, 0)},
		CreatedAt:      now.AddDate(0, -1, 0),
		UpdatedAt:      now,
	})

	p.PutCampaign(match.CampaignProfile{
		ID:        "cmp-fitness-spring",
		NicheTags: []string{"fitness", "wellness"},
		Audience: match.Audience{
			Ages:      match.AgeRange{Min: 21, Max: 45},
			Geos:      []string{"US"},
			Interests: []string{"gym", "nutrition"},
		},
		BudgetMinCents: 100_000,
		BudgetMaxCents: 500_000,
		Formats:        []string{"long_video"},
		Status:         match.CampaignActive,
		Timeline:       match.TimeWindow{Start: now, End: now.AddDate(0, 3, 0)},
		CreatedAt:      now.AddDate(0, -2, 0),
		UpdatedAt:      now,
	})

	creators := []match.InfluencerProfile{
		{
			ID:        "inf-glowwithmaya",
			NicheTags: []string{"beauty", "skincare", "makeup"},
			Audience: match.Audience{
				Ages:      match.AgeRange{Min: 18, Max: 29},
				Geos:      []string{"US", "CA", "UK"},
				Interests: []string{"skincare", "makeup"},
			},
			EngagementRate:   0.062,
			HasEngagement:    true,
			TypicalRateCents: 120_000,
			TurnaroundDays:   7,
			Status:           match.InfluencerActive,
			Outcomes: []match.CollaborationOutcome{
				{Score: 0.95, CompletedAt: now.AddDate(0, -1, 0)},
				{Score: 0.90, CompletedAt: now.AddDate(0, -4, 0)},
			},
		},
		{
			ID:        "inf-dermdaily",
			NicheTags: []string{"skincare", "dermatology"},
			Audience: match.Audience{
				Ages:      match.AgeRange{Min: 25, Max: 44},
				Geos:      []string{"US"},
				Interests: []string{"skincare", "selfcare", "health"},
			},
			EngagementRate:   0.038,
			HasEngagement:    true,
			TypicalRateCents: 180_000,
			TurnaroundDays:   10,
			Status:           match.InfluencerActive,
			Outcomes: []match.CollaborationOutcome{
				{Score: 0.80, CompletedAt: now.AddDate(-1, 0, 0)},
			},
		},
		{
			ID:        "inf-liftwithleo",
			NicheTags: []string{"fitness", "strength"},
			Audience: match.Audience{
				Ages:      match.AgeRange{Min: 21, Max: 40},
				Geos:      []string{"US", "MX"},
				Interests: []string{"gym", "nutrition", "running"},
			},
			EngagementRate:   0.051,
			HasEngagement:    true,
			TypicalRateCents: 250_000,
			TurnaroundDays:   14,
			Status:           match.InfluencerActive,
		},
		{
			ID:        "inf-wellnesswren",
			NicheTags: []string{"wellness", "yoga", "fitness"},
			Audience: match.Audience{
				Ages:      match.AgeRange{Min: 25, Max: 50},
				Geos:      []string{"US"},
				Interests: []string{"yoga", "nutrition"},
			},
			TypicalRateCents: 90_000,
			TurnaroundDays:   5,
			Status:           match.InfluencerActive,
			Outcomes: []match.CollaborationOutcome{
				{Score: 0.70, CompletedAt: now.AddDate(0, -8, 0)},
			},
		},
	}
	for _, c := range creators {
		p.PutInfluencer(c)
	}
}
