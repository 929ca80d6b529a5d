package app

import (
	"context"
	"testing"
	"time"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
)

func TestSweep_ResetsDueCounters(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Anchored on the 10th; last reset in May; it is now June 15th.
	due := env.seedRestaurant("r-due", tier.Basic)
	due.SubscriptionStartedAt = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	due.LastNotificationReset = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	due.NotificationsSentThisMonth = 73
	env.restaurants.Update(ctx, due)

	// Already reset this cycle.
	fresh := env.seedRestaurant("r-fresh", tier.Basic)
	fresh.SubscriptionStartedAt = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	fresh.LastNotificationReset = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	fresh.NotificationsSentThisMonth = 4
	env.restaurants.Update(ctx, fresh)

	// Never subscribed: no anchor, never resets.
	never := env.seedRestaurant("r-never", tier.Free)
	never.SubscriptionStartedAt = time.Time{}
	env.restaurants.Update(ctx, never)

	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)
	n, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("resets = %d, want 1", n)
	}

	got, _ := env.restaurants.Get(ctx, "r-due")
	if got.NotificationsSentThisMonth != 0 {
		t.Errorf("due counter = %d, want 0", got.NotificationsSentThisMonth)
	}
	got, _ = env.restaurants.Get(ctx, "r-fresh")
	if got.NotificationsSentThisMonth != 4 {
		t.Errorf("fresh counter = %d, want untouched", got.NotificationsSentThisMonth)
	}
}

func TestSweep_IdempotentWithinCycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	r := env.seedRestaurant("r-1", tier.Basic)
	r.SubscriptionStartedAt = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	r.LastNotificationReset = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	env.restaurants.Update(ctx, r)

	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)
	if n, _ := svc.Sweep(ctx); n != 1 {
		t.Fatalf("first sweep resets = %d, want 1", n)
	}
	if n, _ := svc.Sweep(ctx); n != 0 {
		t.Errorf("second sweep resets = %d, want 0", n)
	}
}

func TestSweep_SkippedCyclesCollapse(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Three boundaries passed unobserved; a single sweep catches up.
	r := env.seedRestaurant("r-1", tier.Basic)
	r.SubscriptionStartedAt = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	r.LastNotificationReset = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	r.NotificationsSentThisMonth = 99
	env.restaurants.Update(ctx, r)

	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)
	if n, _ := svc.Sweep(ctx); n != 1 {
		t.Fatalf("catch-up sweep resets = %d, want 1", n)
	}
	got, _ := env.restaurants.Get(ctx, "r-1")
	if got.NotificationsSentThisMonth != 0 {
		t.Errorf("counter = %d, want 0", got.NotificationsSentThisMonth)
	}
	if !got.LastNotificationReset.Equal(env.clock.Now()) {
		t.Errorf("last reset = %v, want now", got.LastNotificationReset)
	}
}

func TestSweep_AppliesMaturedPlanChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	effective := env.clock.Now().AddDate(0, 0, -1)
	r := env.seedRestaurant("r-1", tier.Basic)
	r.PendingChange = &billing.PendingChange{Tier: tier.Premium, BillingType: billing.BillingMetered}
	r.PlanChangeEffectiveDate = &effective
	env.restaurants.Update(ctx, r)

	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)
	if _, err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, _ := env.restaurants.Get(ctx, "r-1")
	if got.SubscriptionTier != tier.Premium || got.BillingType != billing.BillingMetered {
		t.Errorf("plan not applied: %s/%s", got.SubscriptionTier, got.BillingType)
	}
	if got.PendingChange != nil || got.PlanChangeEffectiveDate != nil {
		t.Error("pending columns must be cleared together")
	}
}

func TestSweep_LeavesFuturePlanChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	effective := env.clock.Now().AddDate(0, 0, 10)
	r := env.seedRestaurant("r-1", tier.Basic)
	r.PendingChange = &billing.PendingChange{Tier: tier.Premium, BillingType: billing.BillingMonthly}
	r.PlanChangeEffectiveDate = &effective
	env.restaurants.Update(ctx, r)

	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)
	if _, err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, _ := env.restaurants.Get(ctx, "r-1")
	if got.SubscriptionTier != tier.Basic || got.PendingChange == nil {
		t.Error("future plan change must stay pending")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv()
	svc := NewResetService(env.restaurants, env.clock, nil, env.logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
