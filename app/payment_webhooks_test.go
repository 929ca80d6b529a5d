package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
)

func checkoutSessionData(sessionID, restaurantID, planID string) map[string]any {
	return map[string]any{
		"id":           sessionID,
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata": map[string]any{
			"restaurant_id": restaurantID,
			"plan_id":       planID,
		},
	}
}

func TestHandleEvent_CheckoutCompleted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRestaurant("r-1", tier.Free)
	payment := &mockPayment{
		parseType: "checkout.session.completed",
		parseData: checkoutSessionData("cs_1", "r-1", "premium"),
	}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	if err := svc.HandleEvent(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := env.restaurants.Get(ctx, "r-1")
	if got.SubscriptionTier != tier.Premium {
		t.Errorf("tier = %s, want premium", got.SubscriptionTier)
	}
	if got.SubscriptionStatus != billing.StatusActive {
		t.Errorf("status = %s", got.SubscriptionStatus)
	}
	if got.BillingCustomerID != "cus_1" || got.BillingSubscriptionID != "sub_1" {
		t.Errorf("billing ids = %q/%q", got.BillingCustomerID, got.BillingSubscriptionID)
	}
	if got.LastCheckoutSessionID != "cs_1" {
		t.Errorf("session id = %q", got.LastCheckoutSessionID)
	}
	if !got.SubscriptionStartedAt.Equal(env.clock.Now()) {
		t.Errorf("started at = %v", got.SubscriptionStartedAt)
	}
	// premium includes one month
	wantEnds := env.clock.Now().AddDate(0, 1, 0)
	if !got.SubscriptionEndsAt.Equal(wantEnds) {
		t.Errorf("ends at = %v, want %v", got.SubscriptionEndsAt, wantEnds)
	}
}

func TestHandleEvent_EnterpriseIncludedMonths(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRestaurant("r-1", tier.Free)
	payment := &mockPayment{
		parseType: "checkout.session.completed",
		parseData: checkoutSessionData("cs_1", "r-1", "enterprise"),
	}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	if err := svc.HandleEvent(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := env.restaurants.Get(ctx, "r-1")
	wantEnds := env.clock.Now().AddDate(0, 2, 0)
	if !got.SubscriptionEndsAt.Equal(wantEnds) {
		t.Errorf("ends at = %v, want %v (two included months)", got.SubscriptionEndsAt, wantEnds)
	}
}

func TestHandleEvent_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedRestaurant("r-1", tier.Free)
	payment := &mockPayment{
		parseType: "checkout.session.completed",
		parseData: checkoutSessionData("cs_1", "r-1", "basic"),
	}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	if err := svc.HandleEvent(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first, _ := env.restaurants.Get(ctx, "r-1")

	// The provider redelivers the same event later.
	env.clock.Advance(48 * time.Hour)
	if err := svc.HandleEvent(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("replay: %v", err)
	}

	second, _ := env.restaurants.Get(ctx, "r-1")
	if !second.SubscriptionStartedAt.Equal(first.SubscriptionStartedAt) {
		t.Error("replay must not move the subscription anchor")
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("replay must leave the restaurant untouched")
	}
}

func TestHandleEvent_BadSignature(t *testing.T) {
	env := newTestEnv()
	payment := &mockPayment{parseErr: errors.New("signature mismatch")}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	err := svc.HandleEvent(context.Background(), []byte(`{}`), "bad")
	if err == nil || KindOf(err) != KindSignature {
		t.Errorf("err = %v, want signature error", err)
	}
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	env := newTestEnv()
	env.seedRestaurant("r-1", tier.Basic)
	payment := &mockPayment{
		parseType: "invoice.payment_succeeded",
		parseData: map[string]any{"id": "in_1"},
	}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	if err := svc.HandleEvent(context.Background(), []byte(`{}`), "sig"); err != nil {
		t.Errorf("unhandled event must ack cleanly: %v", err)
	}
}

func TestHandleEvent_MissingMetadata(t *testing.T) {
	env := newTestEnv()
	payment := &mockPayment{
		parseType: "checkout.session.completed",
		parseData: map[string]any{"id": "cs_1"},
	}
	svc := NewPaymentWebhookService(env.restaurants, payment, env.clock, nil, env.logger)

	err := svc.HandleEvent(context.Background(), []byte(`{}`), "sig")
	if err == nil || KindOf(err) != KindValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}
