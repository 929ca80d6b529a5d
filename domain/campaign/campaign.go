// Package campaign provides value types for the gated feature entities:
// loyalty cards, promotions, and events.
package campaign

import (
	"time"

	"github.com/stamply/stamply/domain/entitlement"
)

// Kind discriminates the three campaign entity types.
type Kind string

const (
	KindCard      Kind = "card"
	KindPromotion Kind = "promotion"
	KindEvent     Kind = "event"
)

// Status is the lifecycle state. The draft -> live transition is one-way;
// live campaigns are never edited or deleted.
type Status string

const (
	StatusDraft Status = "draft"
	StatusLive  Status = "live"
)

// Campaign represents a loyalty card, promotion, or event (value type).
type Campaign struct {
	ID           string
	RestaurantID string
	Kind         Kind
	Name         string
	Status       Status
	EventDate    *time.Time // events only
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// ValidKind reports whether k names a known campaign kind.
// This is a PURE function.
func ValidKind(k Kind) bool {
	return k == KindCard || k == KindPromotion || k == KindEvent
}

// FeatureFor maps a campaign kind to its entitlement feature.
// This is a PURE function.
func FeatureFor(k Kind) entitlement.Feature {
	switch k {
	case KindCard:
		return entitlement.FeatureCards
	case KindPromotion:
		return entitlement.FeaturePromotions
	default:
		return entitlement.FeatureEvents
	}
}

// IsLive reports whether the campaign counts against the tier's live limit
// at the given time. Soft-deleted campaigns never count; live events stop
// counting once their date has passed.
// This is a PURE function.
func (c Campaign) IsLive(now time.Time) bool {
	if c.Status != StatusLive || c.DeletedAt != nil {
		return false
	}
	if c.Kind == KindEvent && c.EventDate != nil {
		today := now.Truncate(24 * time.Hour)
		return !c.EventDate.Before(today)
	}
	return true
}

// CanGoLive reports whether the campaign is eligible for the one-way
// draft -> live transition.
// This is a PURE function.
func (c Campaign) CanGoLive() bool {
	return c.Status == StatusDraft && c.DeletedAt == nil
}

// CanDelete reports whether the campaign may be soft-deleted. Only drafts
// can be removed; live campaigns are permanent.
// This is a PURE function.
func (c Campaign) CanDelete() bool {
	return c.Status == StatusDraft && c.DeletedAt == nil
}
