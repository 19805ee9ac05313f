// Matchengine - Campaign/Creator Matching & Recommendation Engine
// Copyright 2026 CreatorLink
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/creatorlink/matchengine

// Package events consumes profile change notifications and translates them
// into cache invalidations. Transport is Watermill: NATS JetStream in
// production, an in-process channel pub/sub for local mode and tests.
package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/creatorlink/matchengine/internal/match"
)

// TopicProfileChanged carries campaign and influencer profile updates from
// the profile services.
const TopicProfileChanged = "profiles.changed"

// ProfileChanged is the wire payload for one profile update.
type ProfileChanged struct {
	// ProfileID identifies the changed campaign or influencer.
	ProfileID string `json:"profile_id"`

	// Kind is "campaign" or "influencer".
	Kind match.ProfileKind `json:"kind"`

	// Generation is the monotonically increasing change counter of the
	// profile after this update.
	Generation int64 `json:"generation"`

	// ChangedAt is when the source system recorded the update.
	ChangedAt time.Time `json:"changed_at"`
}

// Valid reports whether the payload carries enough to act on.
func (p ProfileChanged) Valid() bool {
	if p.ProfileID == "" {
		return false
	}
	return p.Kind == match.KindCampaign || p.Kind == match.KindInfluencer
}

// NewMessage encodes a ProfileChanged as a Watermill message.
func NewMessage(p ProfileChanged) (*message.Message, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return message.NewMessage(uuid.NewString(), payload), nil
}

// Decode parses a ProfileChanged from a Watermill message.
func Decode(msg *message.Message) (ProfileChanged, error) {
	var p ProfileChanged
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return ProfileChanged{}, err
	}
	return p, nil
}
