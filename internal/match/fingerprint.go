// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"fmt"
	"time"
)

// Cache key namespaces. Rankings and explanations live under separate
// prefixes so invalidation can target either class in bulk.
const (
	rankNamespace    = "rank"
	explainNamespace = "expl"
)

// fingerprinter derives deterministic cache keys from request parameters,
// the weight-configuration version, and a coarse timestamp bucket. A weight
// tuning change produces a new version and therefore new keys, so stale
// weight configurations can never collide with fresh ones.
type fingerprinter struct {
	weightsVersion string
	bucket         time.Duration
}

func newFingerprinter(weights Weights, bucket time.Duration) *fingerprinter {
	return &fingerprinter{weightsVersion: weights.Version(), bucket: bucket}
}

func (f *fingerprinter) timeBucket(now time.Time) int64 {
	return now.Truncate(f.bucket).Unix()
}

// rankKey fingerprints a ranking request.
func (f *fingerprinter) rankKey(campaignID string, k int, now time.Time) string {
	return fmt.Sprintf("%s:%s:k%d:w%s:b%d", rankNamespace, campaignID, k, f.weightsVersion, f.timeBucket(now))
}

// explainKey fingerprints one (campaign, influencer) explanation.
func (f *fingerprinter) explainKey(campaignID, influencerID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s:w%s:b%d", explainNamespace, campaignID, influencerID, f.weightsVersion, f.timeBucket(now))
}

// campaignRankPrefix covers every ranking entry for one campaign.
func campaignRankPrefix(campaignID string) string {
	return rankNamespace + ":" + campaignID + ":"
}

// campaignExplainPrefix covers every explanation entry for one campaign.
func campaignExplainPrefix(campaignID string) string {
	return explainNamespace + ":" + campaignID + ":"
}

// allRankPrefix covers every ranking entry. Influencer-level invalidation
// uses it: any campaign's pool could include the changed profile, and
// correctness beats hit rate.
const allRankPrefix = rankNamespace + ":"

// allExplainPrefix covers every explanation entry.
const allExplainPrefix = explainNamespace + ":"
