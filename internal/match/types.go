// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

package match

import (
	"context"
	"time"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	// CampaignDraft indicates the campaign is not yet published.
	CampaignDraft CampaignStatus = "DRAFT"
	// CampaignActive indicates the campaign is accepting creators.
	CampaignActive CampaignStatus = "ACTIVE"
	// CampaignClosed indicates the campaign is finished.
	CampaignClosed CampaignStatus = "CLOSED"
)

// InfluencerStatus is the lifecycle state of a creator profile.
type InfluencerStatus string

const (
	// InfluencerActive indicates the creator is accepting collaborations.
	InfluencerActive InfluencerStatus = "ACTIVE"
	// InfluencerInactive indicates the creator paused their profile.
	InfluencerInactive InfluencerStatus = "INACTIVE"
	// InfluencerSuspended indicates the creator was suspended by the platform.
	InfluencerSuspended InfluencerStatus = "SUSPENDED"
)

// AgeRange is an inclusive audience age bracket.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Overlap returns the fraction of the union of two age ranges that both
// ranges cover. Returns 0 for disjoint or degenerate ranges.
func (r AgeRange) Overlap(other AgeRange) float64 {
	lo := max(r.Min, other.Min)
	hi := min(r.Max, other.Max)
	if hi < lo {
		return 0
	}
	uLo := min(r.Min, other.Min)
	uHi := max(r.Max, other.Max)
	if uHi <= uLo {
		return 0
	}
	return float64(hi-lo+1) / float64(uHi-uLo+1)
}

// Audience describes a demographic slice: the target of a campaign or the
// measured audience of a creator. Both sides share one shape so the fit
// computation is symmetric.
type Audience struct {
	// Ages is the age bracket.
	Ages AgeRange `json:"ages"`

	// Geos is a set of ISO country or region codes.
	Geos []string `json:"geos"`

	// Interests is a set of interest tags.
	Interests []string `json:"interests"`
}

// TimeWindow is a half-open availability or campaign window.
// A zero Start or End means unbounded on that side.
type TimeWindow struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Overlaps reports whether two windows share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	if !w.End.IsZero() && !other.Start.IsZero() && w.End.Before(other.Start) {
		return false
	}
	if !other.End.IsZero() && !w.Start.IsZero() && other.End.Before(w.Start) {
		return false
	}
	return true
}

// CampaignProfile is an immutable per-request snapshot of a campaign as
// served by the external data store. The engine never mutates or retains it
// past the request.
type CampaignProfile struct {
	// ID is the campaign identifier issued by the external store.
	ID string `json:"id"`

	// NicheTags is the campaign's niche tag set.
	NicheTags []string `json:"niche_tags"`

	// Audience is the target audience descriptor.
	Audience Audience `json:"audience"`

	// BudgetMinCents and BudgetMaxCents bound the per-collaboration budget.
	// Stored in integer cents.
	BudgetMinCents int64 `json:"budget_min_cents"`
	BudgetMaxCents int64 `json:"budget_max_cents"`

	// Formats lists required content formats (video, reel, post, ...).
	Formats []string `json:"formats,omitempty"`

	// Status is the campaign lifecycle state.
	Status CampaignStatus `json:"status"`

	// Timeline is the campaign run window.
	Timeline TimeWindow `json:"timeline"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Generation is a monotonically increasing change counter maintained by
	// the external store. Used for cache staleness checks.
	Generation int64 `json:"generation,omitempty"`
}

// CollaborationOutcome is the recorded result of one past collaboration.
type CollaborationOutcome struct {
	// Score is the outcome quality in [0, 1].
	Score float64 `json:"score"`

	// CompletedAt is when the collaboration concluded.
	CompletedAt time.Time `json:"completed_at"`
}

// InfluencerProfile is an immutable per-request snapshot of a creator.
type InfluencerProfile struct {
	// ID is the creator identifier issued by the external store.
	ID string `json:"id"`

	// NicheTags is the creator's niche tag set.
	NicheTags []string `json:"niche_tags"`

	// Audience summarizes the creator's measured audience demographics.
	Audience Audience `json:"audience"`

	// EngagementRate is the historical engagement rate as a fraction
	// (0.045 means 4.5%). Zero with HasEngagement false means no history.
	EngagementRate float64 `json:"engagement_rate"`

	// HasEngagement reports whether any engagement history exists.
	HasEngagement bool `json:"has_engagement"`

	// TypicalRateCents is the creator's typical per-collaboration rate.
	TypicalRateCents int64 `json:"typical_rate_cents"`

	// TurnaroundDays is the average content-delivery turnaround.
	TurnaroundDays float64 `json:"turnaround_days,omitempty"`

	// Availability is the window the creator accepts work in.
	Availability TimeWindow `json:"availability"`

	// Status is the creator lifecycle state.
	Status InfluencerStatus `json:"status"`

	// Outcomes holds past-collaboration outcome scores, newest last.
	Outcomes []CollaborationOutcome `json:"outcomes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Generation is the store's change counter for this profile.
	Generation int64 `json:"generation,omitempty"`
}

// Factor names, in the canonical breakdown order.
const (
	FactorNicheOverlap = "niche_overlap"
	FactorAudienceFit  = "audience_fit"
	FactorBudgetFit    = "budget_fit"
	FactorReliability  = "reliability"
	FactorEngagement   = "engagement"
)

// FactorNames lists all scoring factors in breakdown order.
var FactorNames = []string{
	FactorNicheOverlap,
	FactorAudienceFit,
	FactorBudgetFit,
	FactorReliability,
	FactorEngagement,
}

// FactorContribution is one weighted component of a match score.
type FactorContribution struct {
	// Name identifies the factor.
	Name string `json:"name"`

	// Weight is the configured factor weight.
	Weight float64 `json:"weight"`

	// Raw is the unweighted factor value in [0, 1].
	Raw float64 `json:"raw"`

	// Contribution is Weight * Raw. The contributions of all factors sum
	// to the composite score.
	Contribution float64 `json:"contribution"`

	// Rationale is a human-readable explanation of the raw value.
	Rationale string `json:"rationale"`
}

// MatchScore is a composite score in [0, 1] with its per-factor breakdown.
type MatchScore struct {
	// Composite is the weighted sum of all factor contributions.
	Composite float64 `json:"composite"`

	// Factors holds the ordered factor breakdown.
	Factors []FactorContribution `json:"factors"`
}

// Factor returns the named factor contribution, if present.
func (s MatchScore) Factor(name string) (FactorContribution, bool) {
	for _, f := range s.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return FactorContribution{}, false
}

// RankedItem is one entry of a ranked candidate list.
type RankedItem struct {
	// InfluencerID identifies the candidate.
	InfluencerID string `json:"influencer_id"`

	// Score is the full match score with breakdown.
	Score MatchScore `json:"score"`

	// Rank is the 1-based position in the list.
	Rank int `json:"rank"`
}

// RankedResult is an ordered candidate list for one campaign.
// Items are strictly non-increasing by composite score.
type RankedResult struct {
	// CampaignID is the campaign the list was computed for.
	CampaignID string `json:"campaign_id"`

	// Items is the ranked list, length <= requested K.
	Items []RankedItem `json:"items"`

	// PoolSize is the number of candidates that survived prefiltering and
	// were scored.
	PoolSize int `json:"pool_size"`

	// Metadata carries timing and diagnostic information.
	Metadata ResultMetadata `json:"metadata"`
}

// CampaignRankedItem is one entry of a campaigns-for-creator list, the
// reverse recommendation direction.
type CampaignRankedItem struct {
	// CampaignID identifies the matched campaign.
	CampaignID string `json:"campaign_id"`

	// Score is the full match score with breakdown.
	Score MatchScore `json:"score"`

	// Rank is the 1-based position in the list.
	Rank int `json:"rank"`
}

// CampaignRankedResult is an ordered campaign list for one creator.
type CampaignRankedResult struct {
	// InfluencerID is the creator the list was computed for.
	InfluencerID string `json:"influencer_id"`

	// Items is the ranked campaign list, length <= requested K.
	Items []CampaignRankedItem `json:"items"`

	// PoolSize is the number of campaigns that survived prefiltering.
	PoolSize int `json:"pool_size"`

	// Metadata carries timing and diagnostic information.
	Metadata ResultMetadata `json:"metadata"`
}

// ResultMetadata carries timing and diagnostic information for a result.
type ResultMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// K is the requested list length after clamping.
	K int `json:"k"`

	// WeightsVersion identifies the weight configuration the result was
	// computed under.
	WeightsVersion string `json:"weights_version"`

	// LatencyMS is the total computation latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// CacheHit indicates whether the result was served from cache.
	CacheHit bool `json:"cache_hit"`

	// Timestamp is when the result was generated.
	Timestamp time.Time `json:"timestamp"`
}

// ExplanationSource says where an explanation's breakdown came from.
type ExplanationSource string

const (
	// SourceCache means the breakdown was reused from a cached ranking.
	SourceCache ExplanationSource = "cache"
	// SourceFresh means the pair was scored on demand.
	SourceFresh ExplanationSource = "fresh"
)

// Explanation is the formatted factor breakdown for one
// (campaign, influencer) pair.
type Explanation struct {
	CampaignID   string `json:"campaign_id"`
	InfluencerID string `json:"influencer_id"`

	// Composite is the composite match score.
	Composite float64 `json:"composite"`

	// Factors is the ordered factor breakdown with rationales.
	Factors []FactorContribution `json:"factors"`

	// Source reports whether the breakdown was reused or recomputed.
	Source ExplanationSource `json:"source"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Request is a recommendation request.
type Request struct {
	// CampaignID is the campaign to generate candidates for.
	CampaignID string `json:"campaign_id"`

	// K is the number of candidates to return.
	// Defaults to Limits.DefaultK if zero; clamped to Limits.MaxK.
	K int `json:"k,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// CandidateQuery narrows the influencer universe before prefiltering.
type CandidateQuery struct {
	// NicheTags restricts results to profiles sharing at least one tag.
	// Empty means no tag restriction.
	NicheTags []string

	// Limit bounds the number of returned profiles. Zero means the
	// provider's own default.
	Limit int
}

// SignalProvider is the read-only contract to the external profile store.
// Implementations must be safe for concurrent use and must respect context
// deadlines; the engine treats deadline errors as transient failures, not
// as missing data.
type SignalProvider interface {
	// Campaign returns the campaign snapshot or a NotFound error.
	Campaign(ctx context.Context, id string) (*CampaignProfile, error)

	// Influencer returns the creator snapshot or a NotFound error.
	Influencer(ctx context.Context, id string) (*InfluencerProfile, error)

	// Influencers returns creator snapshots matching the query.
	Influencers(ctx context.Context, q CandidateQuery) ([]InfluencerProfile, error)

	// Campaigns returns campaign snapshots matching the query.
	// Used for the campaigns-for-influencer direction.
	Campaigns(ctx context.Context, q CandidateQuery) ([]CampaignProfile, error)

	// Ping reports provider reachability for health checks.
	Ping(ctx context.Context) error
}

// ProfileKind distinguishes invalidation targets.
type ProfileKind string

const (
	// KindCampaign marks a campaign profile change.
	KindCampaign ProfileKind = "campaign"
	// KindInfluencer marks a creator profile change.
	KindInfluencer ProfileKind = "influencer"
)
