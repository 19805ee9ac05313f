// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package match implements the campaign/creator matching and recommendation
// engine.
//
// # Architecture
//
// The engine turns a campaign profile into a ranked, explainable list of
// creator candidates in four stages:
//
//   - Candidate Generation: coarse filtering on status, niche overlap and
//     availability windows, bounded by a configured pool size
//   - Scoring: five weighted factors (niche overlap, audience fit, budget
//     fit, reliability, engagement) combined into a composite in [0, 1]
//   - Ranking: bounded parallel scoring with a deterministic sort and
//     top-K truncation
//   - Explanation: the per-factor breakdown preserved from scoring, so an
//     explanation always reflects the score that was actually served
//
// # Design Principles
//
//   - Deterministic: identical inputs and pool composition produce
//     byte-identical rankings; ties break on reliability then identifier
//   - Degradable: a cache backend failure is absorbed and the result is
//     computed fresh; an empty candidate pool is a valid empty result
//   - Bounded: a semaphore caps concurrent full-pool rankings, per-call
//     timeouts cap provider latency, a request budget caps the whole run
//   - Explainable: factor contributions sum to the composite within
//     floating-point tolerance, by construction
//
// # Usage
//
//	cfg := match.DefaultConfig()
//	svc, err := match.NewService(cfg, provider, store, logger)
//	if err != nil {
//	    return err
//	}
//
//	result, err := svc.Recommend(ctx, match.Request{
//	    CampaignID: campaignID,
//	    K:          20,
//	})
//
// # Thread Safety
//
// The Service is safe for concurrent use. Scoring is side-effect-free;
// shared state is limited to the cache store and the generation counters,
// both guarded internally.
package match
