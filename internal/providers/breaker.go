// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package providers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/creatorlink/matchengine/internal/match"
	"github.com/creatorlink/matchengine/internal/metrics"
)

// Breaker decorates a SignalProvider with a circuit breaker so a degraded
// profile backend fails fast instead of holding ranking slots until their
// timeouts.
//
// The breaker uses real time for its interval and timeout transitions; that
// timing governs recovery, not data integrity. Tests exercise the wrapped
// provider directly when determinism matters.
type Breaker struct {
	next match.SignalProvider
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreaker wraps next with a circuit breaker. The circuit opens at a 60%
// failure rate over at least 10 requests, allows 3 probe requests half-open
// and retries the backend after 30 seconds open.
func NewBreaker(next match.SignalProvider, name string, logger zerolog.Logger) *Breaker {
	log := logger.With().Str("component", "provider-breaker").Str("provider", name).Logger()
	metrics.ProviderBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		// NotFound is a structural answer from a healthy backend, not a
		// failure; counting it would open the circuit on bad input.
		IsSuccessful: func(err error) bool {
			return err == nil || match.IsNotFound(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
			metrics.ProviderBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Breaker{next: next, cb: cb, name: name}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, match.E(match.KindTransient, "signal provider circuit open", err)
	}
	return out, err
}

// Campaign implements match.SignalProvider.
func (b *Breaker) Campaign(ctx context.Context, id string) (*match.CampaignProfile, error) {
	out, err := b.execute(func() (any, error) { return b.next.Campaign(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*match.CampaignProfile), nil
}

// Influencer implements match.SignalProvider.
func (b *Breaker) Influencer(ctx context.Context, id string) (*match.InfluencerProfile, error) {
	out, err := b.execute(func() (any, error) { return b.next.Influencer(ctx, id) })
	if err != nil {
		return nil, err
	}
	return out.(*match.InfluencerProfile), nil
}

// Influencers implements match.SignalProvider.
func (b *Breaker) Influencers(ctx context.Context, q match.CandidateQuery) ([]match.InfluencerProfile, error) {
	out, err := b.execute(func() (any, error) { return b.next.Influencers(ctx, q) })
	if err != nil {
		return nil, err
	}
	return out.([]match.InfluencerProfile), nil
}

// Campaigns implements match.SignalProvider.
func (b *Breaker) Campaigns(ctx context.Context, q match.CandidateQuery) ([]match.CampaignProfile, error) {
	out, err := b.execute(func() (any, error) { return b.next.Campaigns(ctx, q) })
	if err != nil {
		return nil, err
	}
	return out.([]match.CampaignProfile), nil
}

// Ping implements match.SignalProvider. Probes bypass the breaker so health
// checks observe the real backend state.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

var _ match.SignalProvider = (*Breaker)(nil)
