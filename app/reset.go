package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/domain/cycle"
	"github.com/stamply/stamply/ports"
)

// ResetService sweeps restaurants whose billing month has rolled over, zeroing
// the monthly notification counter and applying matured plan changes. Sweeps
// are idempotent: running twice in the same cycle changes nothing the second
// time.
type ResetService struct {
	restaurants ports.RestaurantStore
	clock       ports.Clock
	metrics     *metrics.Collector
	logger      zerolog.Logger
}

// NewResetService creates a new reset service.
func NewResetService(
	restaurants ports.RestaurantStore,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *ResetService {
	return &ResetService{
		restaurants: restaurants,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// Sweep examines every restaurant once. Per-restaurant failures are logged
// and skipped so one bad row cannot stall the rest. Returns how many
// restaurants were reset.
func (s *ResetService) Sweep(ctx context.Context) (int, error) {
	restaurants, err := s.restaurants.List(ctx)
	if err != nil {
		return 0, upstreamErr("failed to list restaurants for reset sweep", err)
	}

	now := s.clock.Now()
	resets := 0
	for _, r := range restaurants {
		if cycle.ResetDue(now, r.LastNotificationReset, r.SubscriptionStartedAt) {
			if err := s.restaurants.ResetNotifications(ctx, r.ID, now); err != nil {
				s.logger.Error().Err(err).
					Str("restaurant_id", r.ID).
					Msg("failed to reset notification counter")
				continue
			}
			resets++
			if s.metrics != nil {
				s.metrics.CycleResets.Inc()
			}
			s.logger.Info().
				Str("restaurant_id", r.ID).
				Msg("monthly notification counter reset")
		}

		if err := s.applyMaturedChange(ctx, r, now); err != nil {
			s.logger.Error().Err(err).
				Str("restaurant_id", r.ID).
				Msg("failed to apply matured plan change")
		}
	}
	return resets, nil
}

// applyMaturedChange promotes a pending plan change whose effective date has
// passed into the restaurant's current tier and billing type, clearing the
// pending columns together.
func (s *ResetService) applyMaturedChange(ctx context.Context, r ports.Restaurant, now time.Time) error {
	if r.PendingChange == nil || r.PlanChangeEffectiveDate == nil {
		return nil
	}
	if now.Before(*r.PlanChangeEffectiveDate) {
		return nil
	}

	change := *r.PendingChange
	r.SubscriptionTier = change.Tier
	r.BillingType = change.BillingType
	r.PendingChange = nil
	r.PlanChangeEffectiveDate = nil
	r.UpdatedAt = now
	if err := s.restaurants.Update(ctx, r); err != nil {
		return err
	}

	s.logger.Info().
		Str("restaurant_id", r.ID).
		Str("tier", string(change.Tier)).
		Str("billing_type", string(change.BillingType)).
		Msg("scheduled plan change applied")
	return nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ResetService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", interval).
		Msg("reset sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reset sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("reset sweep failed")
			}
		}
	}
}
