package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
	"github.com/stamply/stamply/ports"
)

// BillingService keeps the local subscription state in step with the payment
// provider. Every operation is a thin provider call plus a persisted-state
// update; there are no retries, failures surface to the caller.
type BillingService struct {
	restaurants ports.RestaurantStore
	payment     ports.PaymentProvider
	prices      billing.PriceTable
	clock       ports.Clock
	metrics     *metrics.Collector
	logger      zerolog.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(
	restaurants ports.RestaurantStore,
	payment ports.PaymentProvider,
	prices billing.PriceTable,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		restaurants: restaurants,
		payment:     payment,
		prices:      prices,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// PlanChange describes a scheduled tier/billing change and when it lands.
type PlanChange struct {
	Tier          tier.Tier           `json:"tier"`
	BillingType   billing.BillingType `json:"billing_type"`
	DisplayName   string              `json:"display_name"`
	EffectiveDate time.Time           `json:"effective_date"`
}

// CreateCheckout opens a hosted checkout session for a paid plan and returns
// the redirect URL.
func (s *BillingService) CreateCheckout(ctx context.Context, restaurantID, planID, successURL, cancelURL string) (string, error) {
	priceID, ok := s.prices.CheckoutPrice(planID)
	if !ok {
		return "", validationErr("invalid plan %q", planID)
	}

	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return "", notFoundErr("restaurant %s not found", restaurantID)
	}

	metadata := map[string]string{
		"restaurant_id": r.ID,
		"plan_id":       planID,
	}
	url, err := s.payment.CreateCheckoutSession(ctx, r.BillingCustomerID, priceID, successURL, cancelURL, metadata)
	if err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", r.ID).
			Str("plan_id", planID).
			Msg("failed to create checkout session")
		return "", upstreamErr("failed to create checkout session", err)
	}

	if s.metrics != nil {
		s.metrics.CheckoutSessions.WithLabelValues(planID).Inc()
	}
	s.logger.Info().
		Str("restaurant_id", r.ID).
		Str("plan_id", planID).
		Msg("checkout session created")
	return url, nil
}

// CreatePortalSession opens a self-service billing portal session.
func (s *BillingService) CreatePortalSession(ctx context.Context, restaurantID, returnURL string) (string, error) {
	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return "", notFoundErr("restaurant %s not found", restaurantID)
	}
	if r.BillingCustomerID == "" {
		return "", validationErr("restaurant has no billing customer id")
	}

	url, err := s.payment.CreatePortalSession(ctx, r.BillingCustomerID, returnURL)
	if err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", r.ID).
			Msg("failed to create portal session")
		return "", upstreamErr("failed to create portal session", err)
	}
	return url, nil
}

// GetSubscription fetches current subscription state from the provider.
func (s *BillingService) GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	if !billing.ValidSubscriptionID(subscriptionID) {
		return billing.Subscription{}, validationErr("invalid subscription id format")
	}

	sub, err := s.payment.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return billing.Subscription{}, upstreamErr("failed to retrieve subscription", err)
	}
	return sub, nil
}

// ScheduleChange schedules a tier/billing-type change for the next renewal.
// Downgrades to free cancel at period end; everything else swaps the
// subscription price with no proration. Nothing changes before the current
// period ends.
func (s *BillingService) ScheduleChange(ctx context.Context, restaurantID, planID string, billingType billing.BillingType) (PlanChange, error) {
	newTier := tier.Tier(planID)
	if tier.Parse(planID) != newTier {
		return PlanChange{}, validationErr("invalid plan %q", planID)
	}
	if !billing.ValidBillingType(billingType) {
		return PlanChange{}, validationErr("invalid billing type %q", billingType)
	}

	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return PlanChange{}, notFoundErr("restaurant %s not found", restaurantID)
	}
	if r.BillingSubscriptionID == "" {
		return PlanChange{}, conflictErr("restaurant has no active subscription")
	}

	var sub billing.Subscription
	// The current plan stays in force until the effective date, so a metered
	// restaurant keeps its usage item id while the downgrade is pending.
	itemID := r.BillingItemID
	if newTier == tier.Free {
		// Downgrade to free means let the subscription lapse.
		billingType = billing.BillingMonthly
		sub, err = s.payment.SetCancelAtPeriodEnd(ctx, r.BillingSubscriptionID, true)
		if err != nil {
			return PlanChange{}, upstreamErr("failed to schedule cancellation", err)
		}
	} else {
		priceID, ok := s.prices.Resolve(newTier, billingType)
		if !ok {
			return PlanChange{}, validationErr("no price configured for %s/%s", newTier, billingType)
		}
		current, err := s.payment.GetSubscription(ctx, r.BillingSubscriptionID)
		if err != nil {
			return PlanChange{}, upstreamErr("failed to retrieve subscription", err)
		}
		sub, err = s.payment.UpdateSubscriptionPrice(ctx, r.BillingSubscriptionID, current.ItemID, priceID)
		if err != nil {
			return PlanChange{}, upstreamErr("failed to update subscription", err)
		}
		itemID = ""
		if billingType == billing.BillingMetered {
			itemID = sub.ItemID
		}
	}

	effective := sub.CurrentPeriodEnd
	r.PendingChange = &billing.PendingChange{Tier: newTier, BillingType: billingType}
	r.PlanChangeEffectiveDate = &effective
	r.BillingItemID = itemID
	r.UpdatedAt = s.clock.Now()
	if err := s.restaurants.Update(ctx, r); err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", r.ID).
			Msg("provider updated but pending change not persisted")
		return PlanChange{}, upstreamErr("failed to persist pending change", err)
	}

	if s.metrics != nil {
		kind := "downgrade"
		if newTier != tier.Free {
			kind = "change"
		}
		s.metrics.PlanChanges.WithLabelValues(string(newTier), kind).Inc()
	}
	s.logger.Info().
		Str("restaurant_id", r.ID).
		Str("new_tier", string(newTier)).
		Str("billing_type", string(billingType)).
		Time("effective_date", effective).
		Msg("plan change scheduled")

	return PlanChange{
		Tier:          newTier,
		BillingType:   billingType,
		DisplayName:   tier.Lookup(newTier).DisplayName,
		EffectiveDate: effective,
	}, nil
}

// CancelPendingChange reverses a scheduled plan change before it takes effect.
// It is the exact inverse of ScheduleChange: a pending free downgrade is
// un-cancelled, anything else has its price reverted to the current plan.
func (s *BillingService) CancelPendingChange(ctx context.Context, restaurantID string) error {
	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return notFoundErr("restaurant %s not found", restaurantID)
	}
	if r.PendingChange == nil {
		return conflictErr("no pending plan change to cancel")
	}
	if r.BillingSubscriptionID == "" {
		return conflictErr("restaurant has no active subscription")
	}

	itemID := ""
	if r.PendingChange.Tier == tier.Free {
		if _, err := s.payment.SetCancelAtPeriodEnd(ctx, r.BillingSubscriptionID, false); err != nil {
			return upstreamErr("failed to revert cancellation", err)
		}
		if r.BillingType == billing.BillingMetered {
			itemID = r.BillingItemID
		}
	} else {
		priceID, ok := s.prices.Resolve(r.SubscriptionTier, r.BillingType)
		if !ok {
			return validationErr("no price configured for %s/%s", r.SubscriptionTier, r.BillingType)
		}
		current, err := s.payment.GetSubscription(ctx, r.BillingSubscriptionID)
		if err != nil {
			return upstreamErr("failed to retrieve subscription", err)
		}
		sub, err := s.payment.UpdateSubscriptionPrice(ctx, r.BillingSubscriptionID, current.ItemID, priceID)
		if err != nil {
			return upstreamErr("failed to revert subscription", err)
		}
		if r.BillingType == billing.BillingMetered {
			itemID = sub.ItemID
		}
	}

	r.PendingChange = nil
	r.PlanChangeEffectiveDate = nil
	r.BillingItemID = itemID
	r.UpdatedAt = s.clock.Now()
	if err := s.restaurants.Update(ctx, r); err != nil {
		return upstreamErr("failed to clear pending change", err)
	}

	s.logger.Info().
		Str("restaurant_id", r.ID).
		Msg("pending plan change cancelled")
	return nil
}

// ReportUsage posts an incremental metered usage record. Restaurants on flat
// monthly billing no-op successfully; the returned bool reports whether a
// usage record was actually posted.
func (s *BillingService) ReportUsage(ctx context.Context, restaurantID string, quantity int64) (bool, error) {
	if quantity <= 0 {
		return false, validationErr("quantity must be positive")
	}

	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return false, notFoundErr("restaurant %s not found", restaurantID)
	}
	if r.BillingType != billing.BillingMetered {
		return false, nil
	}
	if r.BillingItemID == "" {
		return false, conflictErr("metered billing not configured")
	}

	if err := s.payment.ReportUsage(ctx, r.BillingItemID, quantity, s.clock.Now()); err != nil {
		if s.metrics != nil {
			s.metrics.UsageReports.WithLabelValues("error").Inc()
		}
		return false, upstreamErr("failed to report usage", err)
	}
	if s.metrics != nil {
		s.metrics.UsageReports.WithLabelValues("ok").Inc()
	}
	s.logger.Info().
		Str("restaurant_id", r.ID).
		Int64("quantity", quantity).
		Msg("metered usage reported")
	return true, nil
}
