// Package payment provides payment provider adapters.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/ports"
)

// stripeAPIBase is the REST endpoint used for the one call that bypasses the
// SDK (metered usage records).
const stripeAPIBase = "https://api.stripe.com/v1"

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// StripeProvider implements ports.PaymentProvider for Stripe.
type StripeProvider struct {
	config  StripeConfig
	httpc   *http.Client
	apiBase string
}

// NewStripeProvider creates a new Stripe payment provider.
func NewStripeProvider(config StripeConfig) *StripeProvider {
	stripe.Key = config.SecretKey
	return &StripeProvider{
		config:  config,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		apiBase: stripeAPIBase,
	}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateCheckoutSession creates a Stripe Checkout session in subscription mode.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string, metadata map[string]string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

// CreatePortalSession creates a customer portal session.
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	s, err := portalsession.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

// GetSubscription retrieves subscription details.
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	s, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return billing.Subscription{}, err
	}
	return mapSubscription(s), nil
}

// UpdateSubscriptionPrice swaps the line item to a new price with no
// proration. The swap applies at the next renewal; a previously scheduled
// cancellation is reverted.
func (p *StripeProvider) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (billing.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(itemID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("none"),
		CancelAtPeriodEnd: stripe.Bool(false),
	}

	s, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return billing.Subscription{}, err
	}
	return mapSubscription(s), nil
}

// SetCancelAtPeriodEnd schedules or reverts an end-of-period cancellation.
func (p *StripeProvider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (billing.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}

	s, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return billing.Subscription{}, err
	}
	return mapSubscription(s), nil
}

// ReportUsage posts an incremental usage record against a subscription item.
// This goes straight to the REST API as a form-encoded POST rather than
// through the SDK helper.
func (p *StripeProvider) ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, timestamp time.Time) error {
	form := url.Values{}
	form.Set("quantity", strconv.FormatInt(quantity, 10))
	form.Set("timestamp", strconv.FormatInt(timestamp.Unix(), 10))
	form.Set("action", "increment")

	endpoint := fmt.Sprintf("%s/subscription_items/%s/usage_records", p.apiBase, subscriptionItemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("usage record rejected: %s: %s", resp.Status, apiErrorMessage(body))
	}
	return nil
}

// ParseWebhook parses and validates a Stripe webhook.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (string, map[string]any, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.config.WebhookSecret)
	if err != nil {
		return "", nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return "", nil, err
	}

	return string(event.Type), data, nil
}

func mapSubscription(s *stripe.Subscription) billing.Subscription {
	sub := billing.Subscription{
		ID:                s.ID,
		Status:            billing.MapProviderStatus(string(s.Status)),
		CurrentPeriodEnd:  time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		sub.ItemID = s.Items.Data[0].ID
		if s.Items.Data[0].Price != nil {
			sub.PriceID = s.Items.Data[0].Price.ID
		}
	}
	return sub
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*StripeProvider)(nil)
