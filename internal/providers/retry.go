// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/creatorlink/matchengine/internal/match"
)

// Retry decorates a SignalProvider with bounded exponential backoff.
// Structural failures (NotFound, Configuration) are permanent and never
// retried; everything else gets up to MaxRetries additional attempts.
type Retry struct {
	next       match.SignalProvider
	maxRetries uint64
	initial    time.Duration
	logger     zerolog.Logger
}

// NewRetry wraps next with retry behavior. maxRetries counts additional
// attempts after the first; 1 is the engine default so a single transient
// blip does not fail the request.
func NewRetry(next match.SignalProvider, maxRetries uint64, initial time.Duration, logger zerolog.Logger) *Retry {
	if initial <= 0 {
		initial = 50 * time.Millisecond
	}
	return &Retry{
		next:       next,
		maxRetries: maxRetries,
		initial:    initial,
		logger:     logger.With().Str("component", "provider-retry").Logger(),
	}
}

func (r *Retry) run(ctx context.Context, op string, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(r.initial),
		), r.maxRetries),
		ctx,
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if permanent(err) {
			return backoff.Permanent(err)
		}
		r.logger.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("provider call failed, will retry")
		return err
	}, policy)
}

// permanent reports whether retrying cannot change the outcome.
func permanent(err error) bool {
	switch match.KindOf(err) {
	case match.KindNotFound, match.KindConfiguration:
		return true
	default:
		return false
	}
}

// Campaign implements match.SignalProvider.
func (r *Retry) Campaign(ctx context.Context, id string) (*match.CampaignProfile, error) {
	var out *match.CampaignProfile
	err := r.run(ctx, "campaign", func() error {
		var err error
		out, err = r.next.Campaign(ctx, id)
		return err
	})
	return out, err
}

// Influencer implements match.SignalProvider.
func (r *Retry) Influencer(ctx context.Context, id string) (*match.InfluencerProfile, error) {
	var out *match.InfluencerProfile
	err := r.run(ctx, "influencer", func() error {
		var err error
		out, err = r.next.Influencer(ctx, id)
		return err
	})
	return out, err
}

// Influencers implements match.SignalProvider.
func (r *Retry) Influencers(ctx context.Context, q match.CandidateQuery) ([]match.InfluencerProfile, error) {
	var out []match.InfluencerProfile
	err := r.run(ctx, "influencers", func() error {
		var err error
		out, err = r.next.Influencers(ctx, q)
		return err
	})
	return out, err
}

// Campaigns implements match.SignalProvider.
func (r *Retry) Campaigns(ctx context.Context, q match.CandidateQuery) ([]match.CampaignProfile, error) {
	var out []match.CampaignProfile
	err := r.run(ctx, "campaigns", func() error {
		var err error
		out, err = r.next.Campaigns(ctx, q)
		return err
	})
	return out, err
}

// Ping implements match.SignalProvider. Health probes are not retried.
func (r *Retry) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

var _ match.SignalProvider = (*Retry)(nil)
