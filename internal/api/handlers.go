// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/match"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20 // 1 MiB

// MatchService is the engine surface the handlers depend on.
type MatchService interface {
	Recommend(ctx context.Context, req match.Request) (*match.RankedResult, error)
	RecommendForInfluencer(ctx context.Context, influencerID string, k int) (*match.CampaignRankedResult, error)
	Explain(ctx context.Context, campaignID, influencerID string) (*match.Explanation, error)
	Health(ctx context.Context) match.HealthStatus
	Config() *match.Config
}

// Handler holds the HTTP handlers for the matching API.
type Handler struct {
	svc      MatchService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(svc MatchService, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// GenerateRequest is the payload for POST /api/v1/match/generate.
type GenerateRequest struct {
	// CampaignID identifies the campaign to match.
	CampaignID string `json:"campaign_id" validate:"required,max=128"`

	// K is the desired list length; 0 uses the configured default.
	K int `json:"k" validate:"gte=0,lte=1000"`
}

// Generate handles POST /api/v1/match/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, validationMessage(err))
		return
	}

	result, err := h.svc.Recommend(r.Context(), match.Request{
		CampaignID: req.CampaignID,
		K:          req.K,
	})
	if err != nil {
		rw.EngineError(err)
		return
	}
	rw.Success(result)
}

// Explanation handles GET /api/v1/match/explanation/{campaignID}/{influencerID}.
func (h *Handler) Explanation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	campaignID := chi.URLParam(r, "campaignID")
	influencerID := chi.URLParam(r, "influencerID")
	if campaignID == "" || influencerID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "campaignID and influencerID are required")
		return
	}

	expl, err := h.svc.Explain(r.Context(), campaignID, influencerID)
	if err != nil {
		rw.EngineError(err)
		return
	}
	rw.Success(expl)
}

// InfluencerMatches handles GET /api/v1/match/influencer/{influencerID},
// the reverse recommendation direction: campaigns for a creator.
func (h *Handler) InfluencerMatches(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	influencerID := chi.URLParam(r, "influencerID")
	if influencerID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "influencerID is required")
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}

	result, err := h.svc.RecommendForInfluencer(r.Context(), influencerID, k)
	if err != nil {
		rw.EngineError(err)
		return
	}
	rw.Success(result)
}

// EngineConfig handles GET /api/v1/match/config, exposing the effective
// scoring configuration for operator introspection.
func (h *Handler) EngineConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	cfg := h.svc.Config()
	rw.Success(map[string]interface{}{
		"weights":         cfg.Weights,
		"weights_version": cfg.Weights.Version(),
		"scoring":         cfg.Scoring,
		"candidates":      cfg.Candidates,
		"limits":          cfg.Limits,
		"cache":           cfg.Cache,
	})
}

// healthResponse is the payload for GET /api/v1/health.
type healthResponse struct {
	Status    string             `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Checks    match.HealthStatus `json:"checks"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := h.svc.Health(r.Context())
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    status,
	}
	if !status.Ready() {
		resp.Status = "degraded"
	}
	rw.Success(resp)
}

// HealthLive handles GET /api/v1/health/live. Liveness means the process
// is serving; it never checks dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// cache and provider to be reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := h.svc.Health(r.Context())
	if !status.Ready() {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "dependencies unavailable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validationMessage flattens a validator error into a client-facing string.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return "field " + first.Field() + " failed validation on " + first.Tag()
	}
	return err.Error()
}
