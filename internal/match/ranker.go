// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Ranker scores a candidate pool and produces the ordered top-K list.
// Scoring of individual candidates is independent and side-effect-free, so
// it fans out across a bounded task group; results are only sorted after
// every candidate score is in (the join barrier).
type Ranker struct {
	scorer      *Scorer
	parallelism int
}

// NewRanker creates a ranker.
func NewRanker(scorer *Scorer, parallelism int) *Ranker {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Ranker{scorer: scorer, parallelism: parallelism}
}

// Rank scores every candidate against the campaign and returns the ordered
// top-K items. Output is deterministic for identical inputs and pool
// composition: sort by composite descending, tie-break by reliability
// factor descending, then identifier ascending.
//
// K affects truncation only. Every pair's MatchScore is computed before
// truncation, so the same pair scores identically under any K.
func (r *Ranker) Rank(ctx context.Context, campaign *CampaignProfile, candidates []InfluencerProfile, k int, now time.Time) ([]RankedItem, error) {
	if len(candidates) == 0 {
		return []RankedItem{}, nil
	}

	// Pool aggregates once per request, not per pair, so the engagement
	// factor is comparable across the whole pool.
	pool := r.scorer.ComputePoolStats(candidates, now)

	items := make([]RankedItem, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = RankedItem{
				InfluencerID: candidates[i].ID,
				Score:        r.scorer.Score(campaign, &candidates[i], pool, now),
			}
			return nil
		})
	}

	// Join barrier: no partial ranking ever leaves this function.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortRankedItems(items)

	if len(items) > k {
		items = items[:k]
	}
	for i := range items {
		items[i].Rank = i + 1
	}

	return items, nil
}

func factorRaw(s MatchScore, name string) float64 {
	if f, ok := s.Factor(name); ok {
		return f.Raw
	}
	return 0
}
