// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubProvider is a hand-rolled SignalProvider for generator tests.
type stubProvider struct {
	influencers []InfluencerProfile
	campaigns   []CampaignProfile
	listCalls   int
}

func (s *stubProvider) Campaign(_ context.Context, id string) (*CampaignProfile, error) {
	for i := range s.campaigns {
		if s.campaigns[i].ID == id {
			c := s.campaigns[i]
			return &c, nil
		}
	}
	return nil, Ef(KindNotFound, "campaign %s not found", id)
}

func (s *stubProvider) Influencer(_ context.Context, id string) (*InfluencerProfile, error) {
	for i := range s.influencers {
		if s.influencers[i].ID == id {
			p := s.influencers[i]
			return &p, nil
		}
	}
	return nil, Ef(KindNotFound, "influencer %s not found", id)
}

func (s *stubProvider) Influencers(_ context.Context, q CandidateQuery) ([]InfluencerProfile, error) {
	s.listCalls++
	out := make([]InfluencerProfile, len(s.influencers))
	copy(out, s.influencers)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *stubProvider) Campaigns(_ context.Context, q CandidateQuery) ([]CampaignProfile, error) {
	out := make([]CampaignProfile, len(s.campaigns))
	copy(out, s.campaigns)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *stubProvider) Ping(context.Context) error { return nil }

func TestGeneratorPrefilters(t *testing.T) {
	now := time.Now()
	campaign := testCampaign()
	campaign.Timeline = TimeWindow{Start: now, End: now.AddDate(0, 1, 0)}

	eligible := *testInfluencer("inf-eligible")

	inactive := *testInfluencer("inf-inactive")
	inactive.Status = InfluencerInactive

	offNiche := *testInfluencer("inf-offniche")
	offNiche.NicheTags = []string{"gaming"}

	unavailable := *testInfluencer("inf-unavailable")
	unavailable.Availability = TimeWindow{
		Start: now.AddDate(0, 2, 0),
		End:   now.AddDate(0, 3, 0),
	}

	provider := &stubProvider{influencers: []InfluencerProfile{inactive, eligible, offNiche, unavailable}}
	gen := NewGenerator(provider, DefaultConfig().Candidates, zerolog.Nop())

	got, err := gen.Generate(context.Background(), campaign, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inf-eligible" {
		ids := make([]string, len(got))
		for i := range got {
			ids[i] = got[i].ID
		}
		t.Errorf("expected only inf-eligible to survive, got %v", ids)
	}
}

func TestGeneratorDeterministicOrder(t *testing.T) {
	provider := &stubProvider{influencers: []InfluencerProfile{
		*testInfluencer("inf-c"),
		*testInfluencer("inf-a"),
		*testInfluencer("inf-b"),
	}}
	gen := NewGenerator(provider, DefaultConfig().Candidates, zerolog.Nop())

	got, err := gen.Generate(context.Background(), testCampaign(), 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{"inf-a", "inf-b", "inf-c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d survivors, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestGeneratorPoolBound(t *testing.T) {
	influencers := make([]InfluencerProfile, 10)
	for i := range influencers {
		influencers[i] = *testInfluencer(string(rune('a' + i)))
	}
	provider := &stubProvider{influencers: influencers}
	gen := NewGenerator(provider, DefaultConfig().Candidates, zerolog.Nop())

	got, err := gen.Generate(context.Background(), testCampaign(), 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected pool bounded to 3, got %d", len(got))
	}
}

func TestGenerateCampaignsFiltersInactive(t *testing.T) {
	active := *testCampaign()
	active.ID = "cmp-active"

	closed := *testCampaign()
	closed.ID = "cmp-closed"
	closed.Status = CampaignClosed

	provider := &stubProvider{campaigns: []CampaignProfile{closed, active}}
	gen := NewGenerator(provider, DefaultConfig().Candidates, zerolog.Nop())

	got, err := gen.GenerateCampaigns(context.Background(), testInfluencer("inf-1"), 0)
	if err != nil {
		t.Fatalf("GenerateCampaigns: %v", err)
	}
	if len(got) != 1 || got[0].ID != "cmp-active" {
		t.Errorf("expected only cmp-active, got %d campaigns", len(got))
	}
}
