package app

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/domain/cycle"
	"github.com/stamply/stamply/domain/entitlement"
	"github.com/stamply/stamply/domain/tier"
	"github.com/stamply/stamply/ports"
)

// EntitlementService answers "can this restaurant do X" questions by combining
// the tier catalog with live usage counts. Checks are read-only; callers
// perform the actual state transition (and its audit entry) themselves.
type EntitlementService struct {
	restaurants ports.RestaurantStore
	campaigns   ports.CampaignStore
	clock       ports.Clock
	metrics     *metrics.Collector
	logger      zerolog.Logger
}

// NewEntitlementService creates a new entitlement service.
func NewEntitlementService(
	restaurants ports.RestaurantStore,
	campaigns ports.CampaignStore,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *EntitlementService {
	return &EntitlementService{
		restaurants: restaurants,
		campaigns:   campaigns,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// CanPerformAction checks whether a restaurant may perform an action on a
// feature. Store failures deny the action rather than allow it.
func (s *EntitlementService) CanPerformAction(
	ctx context.Context,
	restaurantID string,
	feature entitlement.Feature,
	action entitlement.Action,
) (entitlement.Decision, error) {
	if !entitlement.ValidFeature(feature) {
		return entitlement.Decision{}, validationErr("unknown feature %q", feature)
	}
	if !entitlement.ValidAction(action) {
		return entitlement.Decision{}, validationErr("unknown action %q", action)
	}

	// Drafts are never capped, so skip the store round-trips entirely.
	if action == entitlement.ActionCreateDraft {
		d := entitlement.Decide(tier.Free, feature, action, 0)
		s.record(feature, action, d)
		return d, nil
	}

	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Msg("failed to load restaurant for entitlement check")
		d := entitlement.FailClosed()
		s.record(feature, action, d)
		return d, nil
	}

	current, err := s.currentCount(ctx, r, feature)
	if err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Str("feature", string(feature)).
			Msg("failed to count usage for entitlement check")
		d := entitlement.FailClosed()
		s.record(feature, action, d)
		return d, nil
	}

	d := entitlement.Decide(r.SubscriptionTier, feature, action, current)
	s.record(feature, action, d)
	return d, nil
}

// currentCount reads how much of the feature's allowance is in use right now.
func (s *EntitlementService) currentCount(ctx context.Context, r ports.Restaurant, feature entitlement.Feature) (int64, error) {
	now := s.clock.Now()

	if feature == entitlement.FeatureNotifications {
		// A counter from a previous billing cycle would wrongly deny the
		// send, so apply an overdue reset before reading it.
		if cycle.ResetDue(now, r.LastNotificationReset, r.SubscriptionStartedAt) {
			if err := s.restaurants.ResetNotifications(ctx, r.ID, now); err != nil {
				return 0, err
			}
			if s.metrics != nil {
				s.metrics.CycleResets.Inc()
			}
			return 0, nil
		}
		return r.NotificationsSentThisMonth, nil
	}

	kind, err := kindForFeature(feature)
	if err != nil {
		return 0, err
	}
	return s.campaigns.CountLive(ctx, r.ID, kind, now)
}

func (s *EntitlementService) record(feature entitlement.Feature, action entitlement.Action, d entitlement.Decision) {
	if s.metrics != nil {
		s.metrics.EntitlementChecks.WithLabelValues(
			string(feature), string(action), strconv.FormatBool(d.Allowed),
		).Inc()
	}
}

func kindForFeature(feature entitlement.Feature) (campaign.Kind, error) {
	switch feature {
	case entitlement.FeatureCards:
		return campaign.KindCard, nil
	case entitlement.FeaturePromotions:
		return campaign.KindPromotion, nil
	case entitlement.FeatureEvents:
		return campaign.KindEvent, nil
	default:
		return "", validationErr("feature %q has no campaign kind", feature)
	}
}
