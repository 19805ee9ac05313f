// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// PoolStats holds the candidate-pool aggregates the scorer needs so that
// pool-relative factors are comparable within one ranking run. Computed once
// per request, never per pair.
type PoolStats struct {
	// EngagementMin and EngagementMax are the pool's min-max normalization
	// bounds over candidates with engagement history.
	EngagementMin float64
	EngagementMax float64

	// HasEngagementBounds reports whether at least two distinct engagement
	// values exist; without bounds the scorer falls back to saturation
	// clamping.
	HasEngagementBounds bool

	// EngagementMedian is the pool-median raw engagement rate, substituted
	// for candidates with no engagement history.
	EngagementMedian float64

	// ReliabilityMedian is the pool-median raw reliability, substituted for
	// candidates with no collaboration history.
	ReliabilityMedian float64
}

// Scorer computes match scores. It is a pure function of its inputs: no
// I/O, no shared mutable state, deterministic for identical inputs.
type Scorer struct {
	weights Weights
	scoring ScoringConfig
}

// NewScorer creates a scorer from validated configuration.
func NewScorer(cfg *Config) *Scorer {
	return &Scorer{weights: cfg.Weights, scoring: cfg.Scoring}
}

// Features computes the normalized feature vector for one pair. The vector
// is ephemeral: derived fresh per request, never persisted.
type Features struct {
	NicheOverlap float64
	AudienceFit  float64
	BudgetFit    float64
	Reliability  float64
	// HasReliability is false when the creator has no outcome history.
	HasReliability bool
	// EngagementRaw is the unnormalized engagement rate.
	EngagementRaw float64
	HasEngagement bool
}

// ComputePoolStats derives the pool aggregates for a candidate set at a
// fixed evaluation instant.
func (s *Scorer) ComputePoolStats(candidates []InfluencerProfile, now time.Time) PoolStats {
	var stats PoolStats

	engagements := make([]float64, 0, len(candidates))
	reliabilities := make([]float64, 0, len(candidates))

	for i := range candidates {
		c := &candidates[i]
		if c.HasEngagement {
			engagements = append(engagements, c.EngagementRate)
		}
		if r, ok := s.reliability(c.Outcomes, now); ok {
			reliabilities = append(reliabilities, r)
		}
	}

	if len(engagements) > 0 {
		mn, mx := engagements[0], engagements[0]
		for _, e := range engagements[1:] {
			mn = math.Min(mn, e)
			mx = math.Max(mx, e)
		}
		stats.EngagementMin = mn
		stats.EngagementMax = mx
		stats.HasEngagementBounds = mx > mn
		stats.EngagementMedian = median(engagements)
	}
	if len(reliabilities) > 0 {
		stats.ReliabilityMedian = median(reliabilities)
	} else {
		// With no history anywhere, a neutral midpoint avoids penalizing
		// an all-new pool.
		stats.ReliabilityMedian = 0.5
	}

	return stats
}

// Score computes the composite score and factor breakdown for one pair.
// K never reaches this function: truncation happens after scoring, so a
// pair scores identically regardless of the requested list length.
func (s *Scorer) Score(campaign *CampaignProfile, inf *InfluencerProfile, pool PoolStats, now time.Time) MatchScore {
	f := s.features(campaign, inf, now)

	niche := f.NicheOverlap
	audience := f.AudienceFit
	budget := f.BudgetFit

	reliability := f.Reliability
	reliabilityRationale := fmt.Sprintf("recency-weighted outcome average over %d past collaborations", len(inf.Outcomes))
	if !f.HasReliability {
		reliability = pool.ReliabilityMedian
		reliabilityRationale = "no collaboration history; pool-median reliability substituted"
	}

	engagement, engagementRationale := s.normalizeEngagement(f, pool)

	factors := []FactorContribution{
		s.contribution(FactorNicheOverlap, niche,
			fmt.Sprintf("%d of %d combined niche tags shared", intersectionSize(campaign.NicheTags, inf.NicheTags), unionSize(campaign.NicheTags, inf.NicheTags))),
		s.contribution(FactorAudienceFit, audience,
			"mean of age-range overlap, geography overlap, and interest overlap"),
		s.contribution(FactorBudgetFit, budget,
			budgetRationale(inf.TypicalRateCents, campaign.BudgetMinCents, campaign.BudgetMaxCents)),
		s.contribution(FactorReliability, reliability, reliabilityRationale),
		s.contribution(FactorEngagement, engagement, engagementRationale),
	}

	composite := 0.0
	for _, fc := range factors {
		composite += fc.Contribution
	}

	return MatchScore{Composite: composite, Factors: factors}
}

func (s *Scorer) contribution(name string, raw float64, rationale string) FactorContribution {
	w := s.weights.For(name)
	return FactorContribution{
		Name:         name,
		Weight:       w,
		Raw:          raw,
		Contribution: w * raw,
		Rationale:    rationale,
	}
}

func (s *Scorer) features(campaign *CampaignProfile, inf *InfluencerProfile, now time.Time) Features {
	f := Features{
		NicheOverlap:  jaccard(campaign.NicheTags, inf.NicheTags),
		AudienceFit:   audienceFit(campaign.Audience, inf.Audience),
		BudgetFit:     budgetFit(inf.TypicalRateCents, campaign.BudgetMinCents, campaign.BudgetMaxCents),
		EngagementRaw: inf.EngagementRate,
		HasEngagement: inf.HasEngagement,
	}
	f.Reliability, f.HasReliability = s.reliability(inf.Outcomes, now)
	return f
}

// normalizeEngagement maps the raw engagement rate into [0, 1].
// Within a ranking run the pool min-max bounds are used; a single-pair
// computation without bounds clamps against the configured saturation
// ceiling instead.
func (s *Scorer) normalizeEngagement(f Features, pool PoolStats) (float64, string) {
	raw := f.EngagementRaw
	if !f.HasEngagement {
		if pool.EngagementMedian > 0 || pool.HasEngagementBounds {
			raw = pool.EngagementMedian
		} else {
			raw = s.scoring.EngagementSaturation / 2
		}
	}

	if pool.HasEngagementBounds {
		v := (raw - pool.EngagementMin) / (pool.EngagementMax - pool.EngagementMin)
		v = clamp01(v)
		rationale := fmt.Sprintf("engagement %.2f%% min-max normalized within candidate pool", raw*100)
		if !f.HasEngagement {
			rationale = "no engagement history; pool-median engagement substituted"
		}
		return v, rationale
	}

	v := clamp01(raw / s.scoring.EngagementSaturation)
	rationale := fmt.Sprintf("engagement %.2f%% clamped against %.1f%% saturation ceiling", raw*100, s.scoring.EngagementSaturation*100)
	if !f.HasEngagement {
		rationale = "no engagement history; neutral engagement substituted"
	}
	return v, rationale
}

// reliability computes the exponentially recency-weighted average of past
// outcome scores. The half-life is configurable; an outcome loses half its
// weight per elapsed half-life. Returns false when no history exists.
func (s *Scorer) reliability(outcomes []CollaborationOutcome, now time.Time) (float64, bool) {
	if len(outcomes) == 0 {
		return 0, false
	}

	halfLife := s.scoring.ReliabilityHalfLife.Hours()
	var weighted, total float64
	for _, o := range outcomes {
		age := now.Sub(o.CompletedAt).Hours()
		if age < 0 {
			age = 0
		}
		w := math.Exp2(-age / halfLife)
		weighted += w * clamp01(o.Score)
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

// jaccard computes |A ∩ B| / |A ∪ B| over tag sets, case-insensitive on
// exact tag strings. Two empty sets score zero, not one: no evidence of
// overlap is not a perfect match.
func jaccard(a, b []string) float64 {
	union := unionSize(a, b)
	if union == 0 {
		return 0
	}
	return float64(intersectionSize(a, b)) / float64(union)
}

// tagSet folds tags to lower case so "Beauty" and "beauty" are one tag.
func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func intersectionSize(a, b []string) int {
	sa := tagSet(a)
	n := 0
	for _, t := range dedupe(b) {
		if _, ok := sa[t]; ok {
			n++
		}
	}
	return n
}

func unionSize(a, b []string) int {
	set := tagSet(a)
	for _, t := range b {
		set[strings.ToLower(t)] = struct{}{}
	}
	return len(set)
}

func dedupe(tags []string) []string {
	set := tagSet(tags)
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// audienceFit averages three similarities, each in [0, 1]: age-range
// overlap, geography overlap, interest overlap. Dimensions with no data on
// either side are skipped rather than counted as mismatches.
func audienceFit(target, actual Audience) float64 {
	var sum float64
	var n int

	if target.Ages.Max > 0 && actual.Ages.Max > 0 {
		sum += target.Ages.Overlap(actual.Ages)
		n++
	}
	if len(target.Geos) > 0 || len(actual.Geos) > 0 {
		sum += jaccard(target.Geos, actual.Geos)
		n++
	}
	if len(target.Interests) > 0 || len(actual.Interests) > 0 {
		sum += jaccard(target.Interests, actual.Interests)
		n++
	}

	if n == 0 {
		// Neither side declared anything; neutral rather than zero.
		return 0.5
	}
	return sum / float64(n)
}

// budgetFit is 1.0 when the rate falls inside [min, max], decaying linearly
// outside: to 0 at twice the upper bound above the range, and to 0 at half
// the lower bound below it.
func budgetFit(rateCents, minCents, maxCents int64) float64 {
	if maxCents <= 0 || rateCents <= 0 {
		return 0
	}
	rate := float64(rateCents)
	lo := float64(minCents)
	hi := float64(maxCents)

	switch {
	case rate >= lo && rate <= hi:
		return 1.0
	case rate > hi:
		return clamp01(1.0 - (rate-hi)/hi)
	default:
		if lo <= 0 {
			return 1.0
		}
		return clamp01(1.0 - (lo-rate)/(lo/2))
	}
}

func budgetRationale(rateCents, minCents, maxCents int64) string {
	switch {
	case rateCents >= minCents && rateCents <= maxCents:
		return fmt.Sprintf("typical rate $%.2f falls inside budget range [$%.2f, $%.2f]", cents(rateCents), cents(minCents), cents(maxCents))
	case rateCents > maxCents:
		return fmt.Sprintf("typical rate $%.2f exceeds budget ceiling $%.2f; linear decay applied", cents(rateCents), cents(maxCents))
	default:
		return fmt.Sprintf("typical rate $%.2f is below budget floor $%.2f; linear decay applied", cents(rateCents), cents(minCents))
	}
}

func cents(v int64) float64 { return float64(v) / 100 }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
