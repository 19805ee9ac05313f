// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/match"
)

// mockService is a hand-rolled MatchService for handler tests.
type mockService struct {
	recommendErr error
	explainErr   error
	healthy      bool
}

func (m *mockService) Recommend(_ context.Context, req match.Request) (*match.RankedResult, error) {
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	return &match.RankedResult{
		CampaignID: req.CampaignID,
		Items: []match.RankedItem{
			{InfluencerID: "inf-1", Rank: 1, Score: match.MatchScore{Composite: 0.8}},
		},
		PoolSize: 1,
		Metadata: match.ResultMetadata{K: req.K, Timestamp: time.Now()},
	}, nil
}

func (m *mockService) RecommendForInfluencer(_ context.Context, influencerID string, k int) (*match.CampaignRankedResult, error) {
	if m.recommendErr != nil {
		return nil, m.recommendErr
	}
	return &match.CampaignRankedResult{
		InfluencerID: influencerID,
		Items: []match.CampaignRankedItem{
			{CampaignID: "cmp-1", Rank: 1, Score: match.MatchScore{Composite: 0.7}},
		},
		Metadata: match.ResultMetadata{K: k},
	}, nil
}

func (m *mockService) Explain(_ context.Context, campaignID, influencerID string) (*match.Explanation, error) {
	if m.explainErr != nil {
		return nil, m.explainErr
	}
	return &match.Explanation{
		CampaignID:   campaignID,
		InfluencerID: influencerID,
		Composite:    0.8,
		Source:       match.SourceFresh,
	}, nil
}

func (m *mockService) Health(context.Context) match.HealthStatus {
	return match.HealthStatus{CacheReachable: m.healthy, ProviderReachable: m.healthy}
}

func (m *mockService) Config() *match.Config { return match.DefaultConfig() }

func newTestRouter(svc MatchService) http.Handler {
	handler := NewHandler(svc, zerolog.Nop())
	return NewRouter(handler, RouterConfig{})
}

func doRequest(t *testing.T, router http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return rec, resp
}

func TestGenerateEndpoint(t *testing.T) {
	router := newTestRouter(&mockService{healthy: true})

	body, _ := json.Marshal(GenerateRequest{CampaignID: "cmp-1", K: 5})
	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/match/generate", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Error("meta should carry a request id")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response should echo the request id header")
	}
}

func TestGenerateRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(&mockService{})

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/match/generate", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %+v", resp.Error)
	}
}

func TestGenerateRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(&mockService{})

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/match/generate",
		[]byte(`{"campaign_id":"cmp-1","surprise":true}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown fields should be rejected, got %d", rec.Code)
	}
}

func TestGenerateValidation(t *testing.T) {
	router := newTestRouter(&mockService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing campaign id", `{"k":5}`},
		{"negative k", `{"campaign_id":"cmp-1","k":-1}`},
		{"oversized k", `{"campaign_id":"cmp-1","k":5000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/match/generate", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("expected VALIDATION_FAILED, got %+v", resp.Error)
			}
		})
	}
}

func TestEngineErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", match.Ef(match.KindNotFound, "campaign cmp-x not found"), http.StatusNotFound, ErrCodeNotFound},
		{"overloaded", match.Ef(match.KindOverloaded, "ceiling reached"), http.StatusTooManyRequests, ErrCodeOverloaded},
		{"timeout", match.Ef(match.KindTimeout, "budget exhausted"), http.StatusGatewayTimeout, ErrCodeTimeout},
		{"transient", match.Ef(match.KindTransient, "circuit open"), http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"internal", match.Ef(match.KindInternal, "scoring blew up"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockService{recommendErr: tt.err})
			body, _ := json.Marshal(GenerateRequest{CampaignID: "cmp-1"})

			rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/match/generate", body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("expected code %s, got %+v", tt.wantCode, resp.Error)
			}
			if tt.wantStatus == http.StatusInternalServerError && resp.Error.Message != "internal error" {
				t.Errorf("internal details must be scrubbed, got %q", resp.Error.Message)
			}
		})
	}
}

func TestExplanationEndpoint(t *testing.T) {
	router := newTestRouter(&mockService{})

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/match/explanation/cmp-1/inf-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success {
		t.Error("expected success envelope")
	}

	raw, _ := json.Marshal(resp.Data)
	var expl match.Explanation
	if err := json.Unmarshal(raw, &expl); err != nil {
		t.Fatalf("data is not an explanation: %v", err)
	}
	if expl.CampaignID != "cmp-1" || expl.InfluencerID != "inf-1" {
		t.Errorf("unexpected pair %s/%s", expl.CampaignID, expl.InfluencerID)
	}
}

func TestInfluencerMatchesEndpoint(t *testing.T) {
	router := newTestRouter(&mockService{})

	rec, ok := doRequest(t, router, http.MethodGet, "/api/v1/match/influencer/inf-1?k=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	raw, _ := json.Marshal(ok.Data)
	var result match.CampaignRankedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("data is not a campaign ranking: %v", err)
	}
	if result.InfluencerID != "inf-1" {
		t.Errorf("ranking is for %s, want inf-1", result.InfluencerID)
	}
	if len(result.Items) != 1 || result.Items[0].CampaignID != "cmp-1" {
		t.Errorf("items should carry campaign identifiers, got %+v", result.Items)
	}

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/match/influencer/inf-1?k=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric k should 400, got %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %+v", resp.Error)
	}
}

func TestConfigEndpoint(t *testing.T) {
	router := newTestRouter(&mockService{})

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/match/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("config payload has unexpected shape: %T", resp.Data)
	}
	for _, key := range []string{"weights", "weights_version", "scoring", "limits"} {
		if _, ok := data[key]; !ok {
			t.Errorf("config payload missing %q", key)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newTestRouter(&mockService{healthy: true})

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, want 200", rec.Code)
		}
		raw, _ := json.Marshal(resp.Data)
		var health healthResponse
		if err := json.Unmarshal(raw, &health); err != nil {
			t.Fatal(err)
		}
		if health.Status != "ok" {
			t.Errorf("status %q, want ok", health.Status)
		}

		rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/health/ready", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("ready status %d, want 200", rec.Code)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		router := newTestRouter(&mockService{healthy: false})

		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("health endpoint always answers 200, got %d", rec.Code)
		}
		raw, _ := json.Marshal(resp.Data)
		var health healthResponse
		if err := json.Unmarshal(raw, &health); err != nil {
			t.Fatal(err)
		}
		if health.Status != "degraded" {
			t.Errorf("status %q, want degraded", health.Status)
		}

		rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/health/ready", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("ready status %d, want 503", rec.Code)
		}

		// Liveness ignores dependency state.
		rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/health/live", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("live status %d, want 200", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	handler := NewHandler(&mockService{}, zerolog.Nop())
	router := NewRouter(handler, RouterConfig{RateLimitReqs: 2, RateLimitWindow: time.Minute})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/match/config", nil)
		req.RemoteAddr = "203.0.113.5:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request should be throttled, got %d", last)
	}

	// Health stays reachable under throttling.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health must bypass the rate limiter, got %d", rec.Code)
	}
}
