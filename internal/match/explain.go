// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import "time"

// buildExplanation formats a computed MatchScore as an explanation. The
// breakdown is carried verbatim from the score, so the guarantee that
// contributions sum to the composite within tolerance transfers directly.
func buildExplanation(campaignID, influencerID string, score MatchScore, source ExplanationSource, now time.Time) *Explanation {
	factors := make([]FactorContribution, len(score.Factors))
	copy(factors, score.Factors)

	return &Explanation{
		CampaignID:   campaignID,
		InfluencerID: influencerID,
		Composite:    score.Composite,
		Factors:      factors,
		Source:       source,
		GeneratedAt:  now,
	}
}

// explanationFromRanked extracts the stored breakdown for one influencer
// from a cached ranking, if the ranking covers the pair.
func explanationFromRanked(result *RankedResult, influencerID string, now time.Time) (*Explanation, bool) {
	for i := range result.Items {
		if result.Items[i].InfluencerID == influencerID {
			return buildExplanation(result.CampaignID, influencerID, result.Items[i].Score, SourceCache, now), true
		}
	}
	return nil, false
}
