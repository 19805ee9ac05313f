// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/creatorlink/matchengine/internal/cache"
	"github.com/creatorlink/matchengine/internal/metrics"
)

// Service orchestrates candidate generation, scoring, ranking, caching and
// explanation. It is safe for concurrent use. The cache store is an
// injected collaborator with an explicit lifecycle, never a process-wide
// singleton.
type Service struct {
	cfg      *Config
	logger   zerolog.Logger
	provider SignalProvider
	store    cache.Store

	scorer      *Scorer
	generator   *Generator
	ranker      *Ranker
	fingerprint *fingerprinter

	// sem caps simultaneous full-pool scoring runs.
	sem *semaphore.Weighted

	// generations tracks the latest change counter seen per profile id.
	// Cached payloads computed from older generations are stale on read
	// even before their TTL expires.
	genMu       sync.RWMutex
	generations map[string]int64
}

// cachedRanking is the cache payload for a ranked result.
type cachedRanking struct {
	Result *RankedResult `json:"result"`

	// Generations snapshots the input generation counters the result was
	// computed from, keyed by profile id.
	Generations map[string]int64 `json:"generations,omitempty"`
}

// cachedExplanation is the cache payload for one explanation.
type cachedExplanation struct {
	Explanation *Explanation     `json:"explanation"`
	Generations map[string]int64 `json:"generations,omitempty"`
}

// HealthStatus reports engine readiness independent of the host service.
type HealthStatus struct {
	CacheReachable    bool        `json:"cache_reachable"`
	ProviderReachable bool        `json:"provider_reachable"`
	CacheStats        cache.Stats `json:"cache_stats"`
}

// Ready reports whether all engine dependencies are reachable.
func (h HealthStatus) Ready() bool {
	return h.CacheReachable && h.ProviderReachable
}

// NewService creates the recommendation service. Configuration violations
// surface here, at startup, as ConfigurationError; request paths never see
// them.
func NewService(cfg *Config, provider SignalProvider, store cache.Store, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, Ef(KindConfiguration, "signal provider is required")
	}

	logger = logger.With().Str("component", "match").Logger()
	scorer := NewScorer(cfg)

	return &Service{
		cfg:         cfg,
		logger:      logger,
		provider:    provider,
		store:       store,
		scorer:      scorer,
		generator:   NewGenerator(provider, cfg.Candidates, logger),
		ranker:      NewRanker(scorer, cfg.Limits.ScoringParallelism),
		fingerprint: newFingerprinter(cfg.Weights, cfg.Cache.TimeBucket),
		sem:         semaphore.NewWeighted(int64(cfg.Limits.MaxConcurrentRanks)),
		generations: make(map[string]int64),
	}, nil
}

// Config returns a copy of the effective configuration.
func (s *Service) Config() *Config { return s.cfg.Clone() }

// Recommend generates the ranked candidate list for a campaign.
func (s *Service) Recommend(ctx context.Context, req Request) (*RankedResult, error) {
	start := time.Now()
	req = s.prepareRequest(req)
	logger := s.logger.With().
		Str("request_id", req.RequestID).
		Str("campaign_id", req.CampaignID).
		Int("k", req.K).
		Logger()

	now := time.Now()
	key := s.fingerprint.rankKey(req.CampaignID, req.K, now)

	if result, ok := s.lookupRanking(ctx, key); ok {
		result.Metadata.CacheHit = true
		result.Metadata.RequestID = req.RequestID
		result.Metadata.LatencyMS = time.Since(start).Milliseconds()
		metrics.CacheHits.Inc()
		logger.Debug().Msg("ranking served from cache")
		return result, nil
	}
	metrics.CacheMisses.Inc()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.RequestBudget)
	defer cancel()

	// Concurrency ceiling: excess requests wait, bounded by the acquire
	// timeout, then fail with Overloaded.
	if err := s.acquireSlot(ctx); err != nil {
		metrics.MatchRequests.WithLabelValues("generate", string(KindOf(err))).Inc()
		return nil, err
	}
	defer s.sem.Release(1)
	metrics.RankingsInFlight.Inc()
	defer metrics.RankingsInFlight.Dec()

	campaign, err := s.fetchCampaign(ctx, req.CampaignID)
	if err != nil {
		metrics.MatchRequests.WithLabelValues("generate", string(KindOf(err))).Inc()
		return nil, err
	}

	candidates, err := s.generator.Generate(ctx, campaign, s.cfg.Candidates.MaxPoolSize)
	if err != nil {
		err = s.classify(err, "candidate generation")
		metrics.MatchRequests.WithLabelValues("generate", string(KindOf(err))).Inc()
		return nil, err
	}
	metrics.CandidatePoolSize.Observe(float64(len(candidates)))

	items, err := s.ranker.Rank(ctx, campaign, candidates, req.K, now)
	if err != nil {
		err = s.classify(err, "ranking")
		metrics.MatchRequests.WithLabelValues("generate", string(KindOf(err))).Inc()
		return nil, err
	}

	result := &RankedResult{
		CampaignID: campaign.ID,
		Items:      items,
		PoolSize:   len(candidates),
		Metadata: ResultMetadata{
			RequestID:      req.RequestID,
			K:              req.K,
			WeightsVersion: s.cfg.Weights.Version(),
			LatencyMS:      time.Since(start).Milliseconds(),
			Timestamp:      now,
		},
	}

	s.storeRanking(ctx, key, campaign, candidates, result, now)

	metrics.MatchRequests.WithLabelValues("generate", "ok").Inc()
	metrics.MatchDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	logger.Debug().
		Int("pool", len(candidates)).
		Int("returned", len(items)).
		Int64("latency_ms", result.Metadata.LatencyMS).
		Msg("ranking complete")

	return result, nil
}

// Explain returns the factor breakdown for one (campaign, influencer)
// pair. A cached breakdown is reused when present; otherwise only the
// requested pair is scored, never the full pool.
func (s *Service) Explain(ctx context.Context, campaignID, influencerID string) (*Explanation, error) {
	start := time.Now()
	now := time.Now()
	key := s.fingerprint.explainKey(campaignID, influencerID, now)

	if expl, ok := s.lookupExplanation(ctx, key); ok {
		metrics.CacheHits.Inc()
		metrics.MatchRequests.WithLabelValues("explain", "ok").Inc()
		return expl, nil
	}
	metrics.CacheMisses.Inc()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.RequestBudget)
	defer cancel()

	campaign, err := s.fetchCampaign(ctx, campaignID)
	if err != nil {
		metrics.MatchRequests.WithLabelValues("explain", string(KindOf(err))).Inc()
		return nil, err
	}

	inf, err := s.fetchInfluencer(ctx, influencerID)
	if err != nil {
		metrics.MatchRequests.WithLabelValues("explain", string(KindOf(err))).Inc()
		return nil, err
	}

	// Single-pair computation: degenerate pool stats, saturation-based
	// engagement normalization.
	score := s.scorer.Score(campaign, inf, PoolStats{}, now)
	expl := buildExplanation(campaignID, influencerID, score, SourceFresh, now)

	s.storeExplanation(ctx, key, campaign, inf, expl)

	metrics.MatchRequests.WithLabelValues("explain", "ok").Inc()
	metrics.MatchDuration.WithLabelValues("explain").Observe(time.Since(start).Seconds())
	return expl, nil
}

// RecommendForInfluencer ranks active campaigns for a creator. The scoring
// factors are symmetric, so the same scorer serves both directions. This
// direction is uncached and scores sequentially: the active-campaign
// universe is small next to the creator universe.
func (s *Service) RecommendForInfluencer(ctx context.Context, influencerID string, k int) (*CampaignRankedResult, error) {
	if k <= 0 {
		k = s.cfg.Limits.DefaultK
	}
	if k > s.cfg.Limits.MaxK {
		k = s.cfg.Limits.MaxK
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.RequestBudget)
	defer cancel()

	if err := s.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	inf, err := s.fetchInfluencer(ctx, influencerID)
	if err != nil {
		return nil, err
	}

	campaigns, err := s.generator.GenerateCampaigns(ctx, inf, s.cfg.Candidates.MaxPoolSize)
	if err != nil {
		return nil, s.classify(err, "campaign generation")
	}

	now := time.Now()
	pool := PoolStats{}
	// Rank with the shared comparator, then carry the order over to the
	// campaign-facing item type.
	ranked := make([]RankedItem, 0, len(campaigns))
	for i := range campaigns {
		score := s.scorer.Score(&campaigns[i], inf, pool, now)
		ranked = append(ranked, RankedItem{InfluencerID: campaigns[i].ID, Score: score})
	}

	sortRankedItems(ranked)
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	items := make([]CampaignRankedItem, len(ranked))
	for i := range ranked {
		items[i] = CampaignRankedItem{
			CampaignID: ranked[i].InfluencerID,
			Score:      ranked[i].Score,
			Rank:       i + 1,
		}
	}

	return &CampaignRankedResult{
		InfluencerID: influencerID,
		Items:        items,
		PoolSize:     len(campaigns),
		Metadata: ResultMetadata{
			K:              k,
			WeightsVersion: s.cfg.Weights.Version(),
			Timestamp:      now,
		},
	}, nil
}

// Invalidate drops every cache entry whose candidate set could include the
// given profile. Campaign changes are precise; influencer changes are
// conservative (any pool could contain the profile), trading hit rate for
// the guarantee that outdated inputs are never served.
func (s *Service) Invalidate(profileID string, kind ProfileKind, generation int64) {
	s.genMu.Lock()
	if generation > s.generations[profileID] {
		s.generations[profileID] = generation
	} else {
		s.generations[profileID]++
	}
	s.genMu.Unlock()

	if s.store == nil || !s.cfg.Cache.Enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var prefixes []string
	switch kind {
	case KindCampaign:
		prefixes = []string{campaignRankPrefix(profileID), campaignExplainPrefix(profileID)}
	default:
		prefixes = []string{allRankPrefix, allExplainPrefix}
	}

	removed := 0
	for _, prefix := range prefixes {
		n, err := s.store.DeletePrefix(ctx, prefix)
		if err != nil {
			s.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache invalidation failed; entries will lapse by generation check or TTL")
			metrics.CacheErrors.Inc()
			continue
		}
		removed += n
	}

	metrics.Invalidations.WithLabelValues(string(kind)).Inc()
	s.logger.Debug().
		Str("profile_id", profileID).
		Str("kind", string(kind)).
		Int("removed", removed).
		Msg("cache invalidated")
}

// Health probes the engine's own dependencies.
func (s *Service) Health(ctx context.Context) HealthStatus {
	var h HealthStatus

	if s.store != nil {
		h.CacheReachable = s.store.Ping(ctx) == nil
		h.CacheStats = s.store.Stats()
	} else {
		h.CacheReachable = true
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.ProviderTimeout)
	defer cancel()
	h.ProviderReachable = s.provider.Ping(pctx) == nil

	return h
}

func (s *Service) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.K <= 0 {
		req.K = s.cfg.Limits.DefaultK
	}
	if req.K > s.cfg.Limits.MaxK {
		req.K = s.cfg.Limits.MaxK
	}
	return req
}

func (s *Service) acquireSlot(ctx context.Context) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.cfg.Limits.AcquireTimeout)
	defer cancel()

	if err := s.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return E(KindTimeout, "request budget exhausted while waiting for a ranking slot", ctx.Err())
		}
		return E(KindOverloaded, "scoring concurrency ceiling reached, retry later", err)
	}
	return nil
}

// fetchCampaign reads a campaign snapshot with the per-call timeout and a
// single backoff retry for transient failures. NotFound is structural and
// surfaces immediately.
func (s *Service) fetchCampaign(ctx context.Context, id string) (*CampaignProfile, error) {
	var campaign *CampaignProfile
	err := s.withProviderCall(ctx, func(callCtx context.Context) error {
		var err error
		campaign, err = s.provider.Campaign(callCtx, id)
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, Ef(KindNotFound, "campaign %s not found", id)
		}
		metrics.ProviderErrors.WithLabelValues("campaign").Inc()
		return nil, s.classify(err, "fetch campaign")
	}
	s.observeGeneration(campaign.ID, campaign.Generation)
	return campaign, nil
}

func (s *Service) fetchInfluencer(ctx context.Context, id string) (*InfluencerProfile, error) {
	var inf *InfluencerProfile
	err := s.withProviderCall(ctx, func(callCtx context.Context) error {
		var err error
		inf, err = s.provider.Influencer(callCtx, id)
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, Ef(KindNotFound, "influencer %s not found", id)
		}
		metrics.ProviderErrors.WithLabelValues("influencer").Inc()
		return nil, s.classify(err, "fetch influencer")
	}
	s.observeGeneration(inf.ID, inf.Generation)
	return inf, nil
}

// withProviderCall runs one provider call under the per-call timeout,
// retrying once after a short backoff on transient failure. Structural
// failures (NotFound) pass through unretried.
func (s *Service) withProviderCall(ctx context.Context, call func(context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Limits.ProviderTimeout)
		defer cancel()
		return call(callCtx)
	}

	err := attempt()
	if err == nil || IsNotFound(err) || ctx.Err() != nil {
		return err
	}

	// One retry with backoff before surfacing; the provider decorators may
	// have already retried at their own layer, this is the request-level
	// second chance.
	select {
	case <-ctx.Done():
		return err
	case <-time.After(100 * time.Millisecond):
	}
	return attempt()
}

// classify maps dependency failures onto the engine error taxonomy.
func (s *Service) classify(err error, op string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return E(KindTimeout, op+" exceeded its deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return E(KindTimeout, op+" canceled", err)
	}
	return E(KindInternal, op+" failed", err)
}

func (s *Service) observeGeneration(profileID string, gen int64) {
	if gen == 0 {
		return
	}
	s.genMu.Lock()
	if gen > s.generations[profileID] {
		s.generations[profileID] = gen
	}
	s.genMu.Unlock()
}

// lookupRanking returns a cached ranking if present, unexpired and not
// computed from inputs older than the latest known generation. Backend
// failures degrade to a miss.
func (s *Service) lookupRanking(ctx context.Context, key string) (*RankedResult, bool) {
	if s.store == nil || !s.cfg.Cache.Enabled {
		return nil, false
	}

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.absorbCacheError(err, "get")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var payload cachedRanking
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Result == nil {
		// Corrupt entry: drop it and recompute.
		_ = s.store.Delete(ctx, key)
		return nil, false
	}

	if s.stale(payload.Generations) {
		_ = s.store.Delete(ctx, key)
		return nil, false
	}

	return payload.Result, true
}

func (s *Service) storeRanking(ctx context.Context, key string, campaign *CampaignProfile, candidates []InfluencerProfile, result *RankedResult, now time.Time) {
	if s.store == nil || !s.cfg.Cache.Enabled {
		return
	}

	gens := map[string]int64{campaign.ID: s.generationOf(campaign.ID)}
	for i := range candidates {
		gens[candidates[i].ID] = s.generationOf(candidates[i].ID)
	}

	raw, err := json.Marshal(cachedRanking{Result: result, Generations: gens})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode ranking for cache")
		return
	}
	if err := s.store.SetWithTTL(ctx, key, raw, s.cfg.Cache.TTL); err != nil {
		s.absorbCacheError(err, "set")
		return
	}

	// Pre-warm per-pair explanations from the ranking so explanation
	// requests for covered pairs reuse the exact stored breakdown.
	for i := range result.Items {
		expl, _ := explanationFromRanked(result, result.Items[i].InfluencerID, now)
		eKey := s.fingerprint.explainKey(campaign.ID, result.Items[i].InfluencerID, now)
		eRaw, err := json.Marshal(cachedExplanation{
			Explanation: expl,
			Generations: map[string]int64{
				campaign.ID:                   s.generationOf(campaign.ID),
				result.Items[i].InfluencerID: s.generationOf(result.Items[i].InfluencerID),
			},
		})
		if err != nil {
			continue
		}
		if err := s.store.SetWithTTL(ctx, eKey, eRaw, s.cfg.Cache.TTL); err != nil {
			s.absorbCacheError(err, "set")
			return
		}
	}
}

func (s *Service) lookupExplanation(ctx context.Context, key string) (*Explanation, bool) {
	if s.store == nil || !s.cfg.Cache.Enabled {
		return nil, false
	}

	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.absorbCacheError(err, "get")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var payload cachedExplanation
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Explanation == nil {
		_ = s.store.Delete(ctx, key)
		return nil, false
	}
	if s.stale(payload.Generations) {
		_ = s.store.Delete(ctx, key)
		return nil, false
	}

	payload.Explanation.Source = SourceCache
	return payload.Explanation, true
}

func (s *Service) storeExplanation(ctx context.Context, key string, campaign *CampaignProfile, inf *InfluencerProfile, expl *Explanation) {
	if s.store == nil || !s.cfg.Cache.Enabled {
		return
	}

	raw, err := json.Marshal(cachedExplanation{
		Explanation: expl,
		Generations: map[string]int64{
			campaign.ID: s.generationOf(campaign.ID),
			inf.ID:      s.generationOf(inf.ID),
		},
	})
	if err != nil {
		return
	}
	if err := s.store.SetWithTTL(ctx, key, raw, s.cfg.Cache.TTL); err != nil {
		s.absorbCacheError(err, "set")
	}
}

// stale reports whether any input generation recorded on a cache entry is
// older than the latest generation the service has seen for that profile.
func (s *Service) stale(recorded map[string]int64) bool {
	if len(recorded) == 0 {
		return false
	}
	s.genMu.RLock()
	defer s.genMu.RUnlock()

	for id, gen := range recorded {
		if latest, ok := s.generations[id]; ok && latest > gen {
			return true
		}
	}
	return false
}

func (s *Service) generationOf(profileID string) int64 {
	s.genMu.RLock()
	defer s.genMu.RUnlock()
	return s.generations[profileID]
}

// absorbCacheError logs and counts a cache backend failure. CacheUnavailable
// is recovered locally by bypassing the cache; it never reaches the caller.
func (s *Service) absorbCacheError(err error, op string) {
	metrics.CacheErrors.Inc()
	s.logger.Warn().Err(err).Str("op", op).Msg("cache backend unavailable, computing fresh")
}

// sortRankedItems orders items by the ranking comparator. Shared by both
// recommendation directions.
func sortRankedItems(items []RankedItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score.Composite != items[j].Score.Composite {
			return items[i].Score.Composite > items[j].Score.Composite
		}
		ri := factorRaw(items[i].Score, FactorReliability)
		rj := factorRaw(items[j].Score, FactorReliability)
		if ri != rj {
			return ri > rj
		}
		return items[i].InfluencerID < items[j].InfluencerID
	})
}
