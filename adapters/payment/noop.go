package payment

import (
	"context"
	"errors"
	"time"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/ports"
)

// ErrPaymentsDisabled is returned when payments are not configured.
var ErrPaymentsDisabled = errors.New("payments are not configured")

// NoopProvider is a no-op payment provider for when payments are disabled.
type NoopProvider struct{}

// NewNoopProvider creates a new no-op payment provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Name returns the provider name.
func (p *NoopProvider) Name() string {
	return "none"
}

// CreateCheckoutSession returns an error as payments are disabled.
func (p *NoopProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string, metadata map[string]string) (string, error) {
	return "", ErrPaymentsDisabled
}

// CreatePortalSession returns an error as payments are disabled.
func (p *NoopProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return "", ErrPaymentsDisabled
}

// GetSubscription returns an error as payments are disabled.
func (p *NoopProvider) GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	return billing.Subscription{}, ErrPaymentsDisabled
}

// UpdateSubscriptionPrice returns an error as payments are disabled.
func (p *NoopProvider) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (billing.Subscription, error) {
	return billing.Subscription{}, ErrPaymentsDisabled
}

// SetCancelAtPeriodEnd returns an error as payments are disabled.
func (p *NoopProvider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (billing.Subscription, error) {
	return billing.Subscription{}, ErrPaymentsDisabled
}

// ReportUsage returns an error as payments are disabled.
func (p *NoopProvider) ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, timestamp time.Time) error {
	return ErrPaymentsDisabled
}

// ParseWebhook returns an error as payments are disabled.
func (p *NoopProvider) ParseWebhook(payload []byte, signature string) (string, map[string]any, error) {
	return "", nil, ErrPaymentsDisabled
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*NoopProvider)(nil)
