// Package entitlement provides pure tier-entitlement decisions.
// All functions are deterministic with no side effects; the current usage
// count is supplied by the caller.
package entitlement

import (
	"fmt"

	"github.com/stamply/stamply/domain/tier"
)

// Feature identifies a gated product feature.
type Feature string

const (
	FeatureCards         Feature = "cards"
	FeaturePromotions    Feature = "promotions"
	FeatureEvents        Feature = "events"
	FeatureNotifications Feature = "notifications"
)

// Action identifies what the caller wants to do with a feature.
type Action string

const (
	ActionCreateDraft Action = "create_draft"
	ActionGoLive      Action = "go_live"
)

// Decision is the outcome of an entitlement check (value type).
type Decision struct {
	Allowed         bool
	Current         int64
	Limit           int64
	Message         string
	RequiresUpgrade bool
	SuggestedTier   tier.Tier // empty when no upgrade is suggested
}

// ValidFeature reports whether f names a known feature.
// This is a PURE function.
func ValidFeature(f Feature) bool {
	switch f {
	case FeatureCards, FeaturePromotions, FeatureEvents, FeatureNotifications:
		return true
	}
	return false
}

// ValidAction reports whether a names a known action.
// This is a PURE function.
func ValidAction(a Action) bool {
	return a == ActionCreateDraft || a == ActionGoLive
}

// LimitFor returns the live-count limit a tier config imposes on a feature.
// This is a PURE function.
func LimitFor(cfg tier.Config, f Feature) int64 {
	switch f {
	case FeatureCards:
		return cfg.MaxLiveCards
	case FeaturePromotions:
		return cfg.MaxLivePromotions
	case FeatureEvents:
		return cfg.MaxLiveEvents
	case FeatureNotifications:
		return cfg.MaxNotificationsPerMonth
	default:
		return 0
	}
}

// Decide evaluates whether a restaurant on tier t may perform action a on
// feature f given its current live/sent count.
// Drafts are never capped. Go-live is allowed while current < limit.
// This is a PURE function.
func Decide(t tier.Tier, f Feature, a Action, current int64) Decision {
	if a == ActionCreateDraft {
		return Decision{Allowed: true}
	}

	cfg := tier.Lookup(t)
	limit := LimitFor(cfg, f)

	if tier.IsUnlimited(limit) {
		return Decision{Allowed: true, Current: current, Limit: limit}
	}
	if current < limit {
		return Decision{Allowed: true, Current: current, Limit: limit}
	}

	suggested := tier.Next(t)
	if limit == 0 {
		// The current tier does not include this feature at all.
		suggested = tier.Basic
	}

	return Decision{
		Allowed:         false,
		Current:         current,
		Limit:           limit,
		Message:         deniedMessage(f, current, limit),
		RequiresUpgrade: true,
		SuggestedTier:   suggested,
	}
}

// FailClosed is the decision returned when usage counts cannot be read.
// A lookup failure denies the action rather than waving it through.
// This is a PURE function.
func FailClosed() Decision {
	return Decision{Allowed: false, Message: "error checking limits"}
}

func deniedMessage(f Feature, current, limit int64) string {
	if limit == 0 {
		return fmt.Sprintf("your plan does not include live %s", f)
	}
	return fmt.Sprintf("%s limit reached (%d/%d)", f, current, limit)
}
