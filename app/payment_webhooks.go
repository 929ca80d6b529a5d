package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
	"github.com/stamply/stamply/ports"
)

// PaymentWebhookService handles incoming webhooks from the payment provider.
// Only checkout completions mutate state; every other event type is accepted
// and ignored so the provider stops retrying.
type PaymentWebhookService struct {
	restaurants ports.RestaurantStore
	payment     ports.PaymentProvider
	clock       ports.Clock
	metrics     *metrics.Collector
	logger      zerolog.Logger
}

// NewPaymentWebhookService creates a new payment webhook service.
func NewPaymentWebhookService(
	restaurants ports.RestaurantStore,
	payment ports.PaymentProvider,
	clock ports.Clock,
	m *metrics.Collector,
	logger zerolog.Logger,
) *PaymentWebhookService {
	return &PaymentWebhookService{
		restaurants: restaurants,
		payment:     payment,
		clock:       clock,
		metrics:     m,
		logger:      logger,
	}
}

// HandleEvent verifies and dispatches a raw webhook delivery. Signature
// verification happens before anything else; a bad signature rejects the
// request with no state touched.
func (s *PaymentWebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	eventType, data, err := s.payment.ParseWebhook(payload, signature)
	if err != nil {
		if s.metrics != nil {
			s.metrics.WebhookFailures.WithLabelValues("bad_signature").Inc()
		}
		s.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return signatureErr(err)
	}

	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(eventType).Inc()
	}
	s.logger.Info().
		Str("event_type", eventType).
		Msg("received payment webhook")

	switch eventType {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, data)
	default:
		// Unknown and unhandled events acknowledge cleanly.
		return nil
	}
}

// handleCheckoutCompleted activates the subscription described by the checkout
// session. The provider delivers at least once, so a session id we have
// already recorded is a no-op success.
func (s *PaymentWebhookService) handleCheckoutCompleted(ctx context.Context, data map[string]any) error {
	sessionID, _ := data["id"].(string)
	customerID, _ := data["customer"].(string)
	subscriptionID, _ := data["subscription"].(string)

	metadata, _ := data["metadata"].(map[string]any)
	restaurantID, _ := metadata["restaurant_id"].(string)
	planID, _ := metadata["plan_id"].(string)

	if restaurantID == "" || planID == "" {
		if s.metrics != nil {
			s.metrics.WebhookFailures.WithLabelValues("missing_metadata").Inc()
		}
		return validationErr("checkout session missing restaurant_id or plan_id metadata")
	}

	r, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", restaurantID).
			Msg("checkout completed for unknown restaurant")
		return notFoundErr("restaurant %s not found", restaurantID)
	}

	if sessionID != "" && r.LastCheckoutSessionID == sessionID {
		s.logger.Info().
			Str("restaurant_id", r.ID).
			Str("session_id", sessionID).
			Msg("duplicate checkout webhook, already processed")
		return nil
	}

	now := s.clock.Now()
	newTier := tier.Parse(planID)

	r.SubscriptionTier = newTier
	r.SubscriptionStatus = billing.StatusActive
	r.SubscriptionStartedAt = now
	r.SubscriptionEndsAt = billing.EndsAtFor(newTier, now)
	r.BillingType = billing.BillingMonthly
	r.LastCheckoutSessionID = sessionID
	if customerID != "" {
		r.BillingCustomerID = customerID
	}
	if subscriptionID != "" {
		r.BillingSubscriptionID = subscriptionID
	}
	r.UpdatedAt = now

	if err := s.restaurants.Update(ctx, r); err != nil {
		s.logger.Error().Err(err).
			Str("restaurant_id", r.ID).
			Msg("failed to persist checkout activation")
		return upstreamErr("failed to activate subscription", err)
	}

	s.logger.Info().
		Str("restaurant_id", r.ID).
		Str("tier", string(newTier)).
		Str("subscription_id", subscriptionID).
		Msg("subscription activated from checkout")
	return nil
}
