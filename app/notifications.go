package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/domain/entitlement"
	"github.com/stamply/stamply/ports"
)

// NotificationService sends push notifications under the monthly tier cap.
// Only sent notifications count toward the cap; the counter increment is a
// conditional update so concurrent sends cannot blow past the limit.
type NotificationService struct {
	restaurants   ports.RestaurantStore
	notifications ports.NotificationStore
	audit         ports.AuditStore
	entitlements  *EntitlementService
	idGen         ports.IDGenerator
	clock         ports.Clock
	metrics       *metrics.Collector
	logger        zerolog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(
	restaurants ports.RestaurantStore,
	notifications ports.NotificationStore,
	audit ports.AuditStore,
	entitlements *EntitlementService,
	idGen ports.IDGenerator,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		restaurants:   restaurants,
		notifications: notifications,
		audit:         audit,
		entitlements:  entitlements,
		idGen:         idGen,
		clock:         clock,
		metrics:       m,
		logger:        logger,
	}
}

// Send delivers a notification if the restaurant still has monthly quota.
// A denial is a normal outcome carried in the decision, not an error.
func (s *NotificationService) Send(ctx context.Context, restaurantID, actor, title, body string) (entitlement.Decision, ports.Notification, error) {
	if title == "" {
		return entitlement.Decision{}, ports.Notification{}, validationErr("notification title is required")
	}

	d, err := s.entitlements.CanPerformAction(ctx, restaurantID, entitlement.FeatureNotifications, entitlement.ActionGoLive)
	if err != nil {
		return entitlement.Decision{}, ports.Notification{}, err
	}

	if d.Allowed {
		ok, err := s.restaurants.IncrementNotificationsSent(ctx, restaurantID, d.Limit)
		if err != nil {
			s.logger.Error().Err(err).
				Str("restaurant_id", restaurantID).
				Msg("failed to increment notification counter")
			d = entitlement.FailClosed()
		} else if !ok {
			// Concurrent send used the last quota slot.
			r, rerr := s.restaurants.Get(ctx, restaurantID)
			if rerr != nil {
				d = entitlement.FailClosed()
			} else {
				d = entitlement.Decide(r.SubscriptionTier, entitlement.FeatureNotifications, entitlement.ActionGoLive, d.Limit)
			}
		}
	}

	s.recordAudit(ctx, restaurantID, actor, d)
	if !d.Allowed {
		return d, ports.Notification{}, nil
	}

	now := s.clock.Now()
	n := ports.Notification{
		ID:           s.idGen.New(),
		RestaurantID: restaurantID,
		Title:        title,
		Body:         body,
		SentAt:       &now,
		CreatedAt:    now,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		// Give the quota slot back; the notification was never delivered.
		if derr := s.restaurants.DecrementNotificationsSent(ctx, restaurantID); derr != nil {
			s.logger.Error().Err(derr).
				Str("restaurant_id", restaurantID).
				Msg("failed to return notification quota slot")
		}
		return entitlement.Decision{}, ports.Notification{}, upstreamErr("failed to store notification", err)
	}

	if s.metrics != nil {
		s.metrics.NotificationsSent.Inc()
	}
	s.logger.Info().
		Str("notification_id", n.ID).
		Str("restaurant_id", restaurantID).
		Msg("notification sent")
	return d, n, nil
}

// List returns recent notifications for a restaurant.
func (s *NotificationService) List(ctx context.Context, restaurantID string, limit int) ([]ports.Notification, error) {
	list, err := s.notifications.ListByRestaurant(ctx, restaurantID, limit)
	if err != nil {
		return nil, upstreamErr("failed to list notifications", err)
	}
	return list, nil
}

func (s *NotificationService) recordAudit(ctx context.Context, restaurantID, actor string, d entitlement.Decision) {
	entry := ports.AuditEntry{
		ID:           s.idGen.New(),
		RestaurantID: restaurantID,
		Actor:        actor,
		Feature:      string(entitlement.FeatureNotifications),
		Action:       string(entitlement.ActionGoLive),
		Allowed:      d.Allowed,
		Detail:       d.Message,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Msg("failed to record audit entry")
	}
}
