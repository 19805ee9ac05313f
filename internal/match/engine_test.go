// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/cache"
)

// mockProvider counts calls and can block or fail on demand.
type mockProvider struct {
	campaigns   map[string]CampaignProfile
	influencers []InfluencerProfile

	campaignCalls atomic.Int64
	listCalls     atomic.Int64

	// blockList, when non-nil, blocks Influencers until closed.
	blockList chan struct{}

	// failList, when set, makes Influencers fail.
	failList error
}

func newMockProvider() *mockProvider {
	campaign := *testCampaign()
	return &mockProvider{
		campaigns: map[string]CampaignProfile{campaign.ID: campaign},
		influencers: []InfluencerProfile{
			*testInfluencer("inf-a"),
			*testInfluencer("inf-b"),
			*testInfluencer("inf-c"),
		},
	}
}

func (m *mockProvider) Campaign(_ context.Context, id string) (*CampaignProfile, error) {
	m.campaignCalls.Add(1)
	c, ok := m.campaigns[id]
	if !ok {
		return nil, Ef(KindNotFound, "campaign %s not found", id)
	}
	return &c, nil
}

func (m *mockProvider) Influencer(_ context.Context, id string) (*InfluencerProfile, error) {
	for i := range m.influencers {
		if m.influencers[i].ID == id {
			p := m.influencers[i]
			return &p, nil
		}
	}
	return nil, Ef(KindNotFound, "influencer %s not found", id)
}

func (m *mockProvider) Influencers(ctx context.Context, q CandidateQuery) ([]InfluencerProfile, error) {
	m.listCalls.Add(1)
	if m.blockList != nil {
		select {
		case <-m.blockList:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failList != nil {
		return nil, m.failList
	}
	out := make([]InfluencerProfile, len(m.influencers))
	copy(out, m.influencers)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockProvider) Campaigns(_ context.Context, q CandidateQuery) ([]CampaignProfile, error) {
	out := make([]CampaignProfile, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockProvider) Ping(context.Context) error { return nil }

// failingStore implements cache.Store and fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("backend down") }
func (failingStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, errors.New("backend down")
}
func (failingStore) Ping(context.Context) error { return errors.New("backend down") }
func (failingStore) Stats() cache.Stats         { return cache.Stats{} }
func (failingStore) Close() error               { return nil }

func newTestService(t *testing.T, provider SignalProvider, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	svc, err := NewService(cfg, provider, cache.NewMemory(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Engagement = 0.5 // breaks the sum

	_, err := NewService(cfg, newMockProvider(), cache.NewMemory(), zerolog.Nop())
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if KindOf(err) != KindConfiguration {
		t.Errorf("expected CONFIGURATION, got %s", KindOf(err))
	}
}

func TestRecommendReturnsRankedResult(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, nil)

	result, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-1", K: 2})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if result.CampaignID != "cmp-1" {
		t.Errorf("campaign id %s, want cmp-1", result.CampaignID)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.PoolSize != 3 {
		t.Errorf("pool size %d, want 3", result.PoolSize)
	}
	if result.Metadata.CacheHit {
		t.Error("first call must not be a cache hit")
	}
	if result.Metadata.WeightsVersion == "" {
		t.Error("metadata missing weights version")
	}
	for i, item := range result.Items {
		if item.Rank != i+1 {
			t.Errorf("item %d rank %d", i, item.Rank)
		}
	}
}

func TestRecommendCacheHitSkipsProvider(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, nil)
	ctx := context.Background()
	req := Request{CampaignID: "cmp-1", K: 2}

	first, err := svc.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("first Recommend: %v", err)
	}
	callsAfterFirst := provider.listCalls.Load()

	second, err := svc.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("second Recommend: %v", err)
	}

	if !second.Metadata.CacheHit {
		t.Error("second identical request should hit the cache")
	}
	if provider.listCalls.Load() != callsAfterFirst {
		t.Error("cache hit must not call the provider")
	}

	if len(first.Items) != len(second.Items) {
		t.Fatalf("item counts differ: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].InfluencerID != second.Items[i].InfluencerID ||
			first.Items[i].Score.Composite != second.Items[i].Score.Composite {
			t.Errorf("cached item %d differs from computed item", i)
		}
	}
}

func TestRecommendInvalidationForcesRecompute(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, nil)
	ctx := context.Background()
	req := Request{CampaignID: "cmp-1", K: 2}

	if _, err := svc.Recommend(ctx, req); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	calls := provider.listCalls.Load()

	svc.Invalidate("inf-a", KindInfluencer, 0)

	result, err := svc.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("Recommend after invalidation: %v", err)
	}
	if result.Metadata.CacheHit {
		t.Error("invalidated entry must not be served")
	}
	if provider.listCalls.Load() == calls {
		t.Error("invalidation must force a recompute")
	}
}

func TestRecommendCampaignInvalidationIsScoped(t *testing.T) {
	provider := newMockProvider()
	other := *testCampaign()
	other.ID = "cmp-2"
	provider.campaigns[other.ID] = other

	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	if _, err := svc.Recommend(ctx, Request{CampaignID: "cmp-1", K: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Recommend(ctx, Request{CampaignID: "cmp-2", K: 2}); err != nil {
		t.Fatal(err)
	}

	svc.Invalidate("cmp-1", KindCampaign, 0)

	r1, err := svc.Recommend(ctx, Request{CampaignID: "cmp-1", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if r1.Metadata.CacheHit {
		t.Error("cmp-1 entries should be invalidated")
	}

	r2, err := svc.Recommend(ctx, Request{CampaignID: "cmp-2", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !r2.Metadata.CacheHit {
		t.Error("cmp-2 entries should survive a cmp-1 invalidation")
	}
}

func TestRecommendUnknownCampaign(t *testing.T) {
	svc := newTestService(t, newMockProvider(), nil)

	_, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-missing"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %s", KindOf(err))
	}
}

func TestRecommendEmptyPoolIsValid(t *testing.T) {
	provider := newMockProvider()
	provider.influencers = nil
	svc := newTestService(t, provider, nil)

	result, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-1"})
	if err != nil {
		t.Fatalf("empty pool must not error: %v", err)
	}
	if len(result.Items) != 0 || result.PoolSize != 0 {
		t.Errorf("expected empty result, got %d items, pool %d", len(result.Items), result.PoolSize)
	}
}

func TestRecommendCacheFailureDegradesToFresh(t *testing.T) {
	provider := newMockProvider()
	cfg := DefaultConfig()
	svc, err := NewService(cfg, provider, failingStore{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-1", K: 2})
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if result.Metadata.CacheHit {
		t.Error("failing store cannot produce a hit")
	}
	if len(result.Items) != 2 {
		t.Errorf("expected fresh result with 2 items, got %d", len(result.Items))
	}
}

func TestRecommendOverload(t *testing.T) {
	provider := newMockProvider()
	provider.blockList = make(chan struct{})
	svc := newTestService(t, provider, func(c *Config) {
		c.Limits.MaxConcurrentRanks = 1
		c.Limits.AcquireTimeout = 20 * time.Millisecond
	})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Recommend(ctx, Request{CampaignID: "cmp-1"})
	}()

	// Wait until the first request holds the slot inside the provider call.
	deadline := time.After(2 * time.Second)
	for provider.listCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first request never reached the provider")
		case <-time.After(time.Millisecond):
		}
	}

	_, err := svc.Recommend(ctx, Request{CampaignID: "cmp-1"})
	if err == nil {
		t.Fatal("expected overload error")
	}
	if KindOf(err) != KindOverloaded {
		t.Errorf("expected OVERLOADED, got %s", KindOf(err))
	}

	close(provider.blockList)
	<-done
}

func TestRecommendKClamping(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, func(c *Config) {
		c.Limits.DefaultK = 2
		c.Limits.MaxK = 2
	})

	result, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-1", K: 500})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if result.Metadata.K != 2 {
		t.Errorf("K should clamp to MaxK=2, got %d", result.Metadata.K)
	}
	if len(result.Items) > 2 {
		t.Errorf("items should be truncated to 2, got %d", len(result.Items))
	}
}

func TestExplain(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	t.Run("fresh single pair", func(t *testing.T) {
		expl, err := svc.Explain(ctx, "cmp-1", "inf-a")
		if err != nil {
			t.Fatalf("Explain: %v", err)
		}
		if expl.Source != SourceFresh {
			t.Errorf("source %s, want fresh", expl.Source)
		}
		if len(expl.Factors) != len(FactorNames) {
			t.Errorf("expected %d factors, got %d", len(FactorNames), len(expl.Factors))
		}

		var sum float64
		for _, f := range expl.Factors {
			sum += f.Contribution
		}
		if diff := sum - expl.Composite; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("contributions sum %f != composite %f", sum, expl.Composite)
		}
	})

	t.Run("served from cache after ranking", func(t *testing.T) {
		if _, err := svc.Recommend(ctx, Request{CampaignID: "cmp-1", K: 3}); err != nil {
			t.Fatalf("Recommend: %v", err)
		}

		expl, err := svc.Explain(ctx, "cmp-1", "inf-b")
		if err != nil {
			t.Fatalf("Explain: %v", err)
		}
		if expl.Source != SourceCache {
			t.Errorf("source %s, want cache", expl.Source)
		}
	})

	t.Run("unknown influencer", func(t *testing.T) {
		_, err := svc.Explain(ctx, "cmp-1", "inf-missing")
		if !IsNotFound(err) {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestRecommendPrefersBetterFit(t *testing.T) {
	// A beauty campaign should rank a matching skincare creator above an
	// off-budget, off-audience one even when both share a niche tag.
	provider := newMockProvider()

	good := *testInfluencer("inf-good")
	good.TypicalRateCents = 100_000 // inside budget
	good.Outcomes = []CollaborationOutcome{{Score: 0.95, CompletedAt: time.Now().AddDate(0, -1, 0)}}

	poor := *testInfluencer("inf-poor")
	poor.NicheTags = []string{"beauty", "travel"}
	poor.TypicalRateCents = 390_000 // near twice the ceiling
	poor.Audience = Audience{Ages: AgeRange{Min: 45, Max: 65}, Geos: []string{"JP"}, Interests: []string{"travel"}}

	provider.influencers = []InfluencerProfile{poor, good}
	svc := newTestService(t, provider, nil)

	result, err := svc.Recommend(context.Background(), Request{CampaignID: "cmp-1", K: 2})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].InfluencerID != "inf-good" {
		t.Errorf("expected inf-good first, got %s", result.Items[0].InfluencerID)
	}
	if result.Items[0].Score.Composite <= result.Items[1].Score.Composite {
		t.Error("better fit should have strictly higher composite")
	}
}

// TestRankingBudgetNicheTradeoff ranks two creators against a campaign with
// a 500 to 1000 dollar budget in one run and checks the factor breakdowns:
// the broader-tagged creator loses on niche overlap but wins on budget fit,
// and that shows up in the explanation contributions.
func TestRankingBudgetNicheTradeoff(t *testing.T) {
	campaign := *testCampaign()
	campaign.BudgetMinCents = 50_000
	campaign.BudgetMaxCents = 100_000

	inBudget := *testInfluencer("inf-in-budget")
	inBudget.NicheTags = []string{"beauty", "skincare", "fashion", "lifestyle"}
	inBudget.TypicalRateCents = 70_000
	inBudget.EngagementRate = 0.045

	premium := *testInfluencer("inf-premium")
	premium.NicheTags = []string{"beauty", "skincare"}
	premium.TypicalRateCents = 150_000
	premium.EngagementRate = 0.06

	provider := newMockProvider()
	provider.campaigns = map[string]CampaignProfile{campaign.ID: campaign}
	provider.influencers = []InfluencerProfile{inBudget, premium}

	svc := newTestService(t, provider, nil)
	ctx := context.Background()

	result, err := svc.Recommend(ctx, Request{CampaignID: campaign.ID, K: 2})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected both creators ranked, got %d items", len(result.Items))
	}

	factor := func(id, name string) FactorContribution {
		t.Helper()
		expl, err := svc.Explain(ctx, campaign.ID, id)
		if err != nil {
			t.Fatalf("Explain(%s): %v", id, err)
		}
		for _, f := range expl.Factors {
			if f.Name == name {
				return f
			}
		}
		t.Fatalf("explanation for %s has no %s factor", id, name)
		return FactorContribution{}
	}

	const tol = 1e-9

	// 2 shared tags out of 4 combined versus a full overlap.
	if got := factor(inBudget.ID, FactorNicheOverlap).Raw; math.Abs(got-0.5) > tol {
		t.Errorf("niche overlap for %s = %f, want 0.5", inBudget.ID, got)
	}
	if got := factor(premium.ID, FactorNicheOverlap).Raw; math.Abs(got-1.0) > tol {
		t.Errorf("niche overlap for %s = %f, want 1.0", premium.ID, got)
	}

	// 700 dollars sits inside the range; 1500 is half way to the 2x cutoff.
	inBudgetFit := factor(inBudget.ID, FactorBudgetFit)
	premiumFit := factor(premium.ID, FactorBudgetFit)
	if math.Abs(inBudgetFit.Raw-1.0) > tol {
		t.Errorf("budget fit for %s = %f, want 1.0", inBudget.ID, inBudgetFit.Raw)
	}
	if math.Abs(premiumFit.Raw-0.5) > tol {
		t.Errorf("budget fit for %s = %f, want 0.5", premium.ID, premiumFit.Raw)
	}
	if inBudgetFit.Contribution <= premiumFit.Contribution {
		t.Errorf("budget fit contribution %f for %s should exceed %f for %s",
			inBudgetFit.Contribution, inBudget.ID, premiumFit.Contribution, premium.ID)
	}
}

func TestRecommendForInfluencer(t *testing.T) {
	provider := newMockProvider()
	svc := newTestService(t, provider, nil)

	result, err := svc.RecommendForInfluencer(context.Background(), "inf-a", 5)
	if err != nil {
		t.Fatalf("RecommendForInfluencer: %v", err)
	}
	if result.InfluencerID != "inf-a" {
		t.Errorf("result is for %s, want inf-a", result.InfluencerID)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(result.Items))
	}
	if result.Items[0].CampaignID != "cmp-1" {
		t.Errorf("expected cmp-1, got %s", result.Items[0].CampaignID)
	}
	if result.Items[0].Rank != 1 {
		t.Errorf("rank %d, want 1", result.Items[0].Rank)
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, newMockProvider(), nil)

	h := svc.Health(context.Background())
	if !h.Ready() {
		t.Error("healthy dependencies should report ready")
	}

	cfg := DefaultConfig()
	degraded, err := NewService(cfg, newMockProvider(), failingStore{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if degraded.Health(context.Background()).Ready() {
		t.Error("failing cache should report not ready")
	}
}
