package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stamply/stamply/adapters/memory"
	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/ports"
)

func TestRestaurantStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRestaurantStore()

	if _, err := store.Get(ctx, "r-1"); err != memory.ErrNotFound {
		t.Errorf("empty store Get err = %v", err)
	}

	r := ports.Restaurant{ID: "r-1", Name: "Bistro", BillingCustomerID: "cus_1"}
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetByCustomerID(ctx, "cus_1")
	if err != nil || got.ID != "r-1" {
		t.Errorf("GetByCustomerID = %+v, err=%v", got, err)
	}
	if _, err := store.GetByCustomerID(ctx, ""); err != memory.ErrNotFound {
		t.Errorf("empty customer id must not match, err = %v", err)
	}

	r.Name = "Bistro Nuevo"
	if err := store.Update(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.Get(ctx, "r-1")
	if got.Name != "Bistro Nuevo" {
		t.Errorf("name = %q after update", got.Name)
	}

	if err := store.Update(ctx, ports.Restaurant{ID: "r-missing"}); err != memory.ErrNotFound {
		t.Errorf("update missing err = %v", err)
	}
}

func TestRestaurantStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRestaurantStore()
	if err := store.Create(ctx, ports.Restaurant{ID: "r-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const attempts = 50
	const limit = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.IncrementNotificationsSent(ctx, "r-1", limit)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Errorf("granted = %d, want exactly %d", granted, limit)
	}
	r, _ := store.Get(ctx, "r-1")
	if r.NotificationsSentThisMonth != limit {
		t.Errorf("counter = %d, want %d", r.NotificationsSentThisMonth, limit)
	}
}

func TestRestaurantStore_DecrementFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRestaurantStore()
	if err := store.Create(ctx, ports.Restaurant{ID: "r-1", NotificationsSentThisMonth: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.DecrementNotificationsSent(ctx, "r-1"); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := store.DecrementNotificationsSent(ctx, "r-1"); err != nil {
		t.Fatalf("decrement at zero: %v", err)
	}
	r, _ := store.Get(ctx, "r-1")
	if r.NotificationsSentThisMonth != 0 {
		t.Errorf("counter = %d, want 0", r.NotificationsSentThisMonth)
	}

	if err := store.DecrementNotificationsSent(ctx, "r-missing"); err != memory.ErrNotFound {
		t.Errorf("missing restaurant err = %v", err)
	}
}

func TestCampaignStore_ConcurrentActivations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCampaignStore()
	now := time.Now().UTC()

	const drafts = 20
	const limit = 3
	ids := make([]string, drafts)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		err := store.Create(ctx, campaign.Campaign{
			ID: ids[i], RestaurantID: "r-1", Kind: campaign.KindPromotion,
			Name: "promo", Status: campaign.StatusDraft,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	activated := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ok, err := store.ActivateIfUnderLimit(ctx, id, limit, now)
			if err != nil {
				t.Errorf("activate: %v", err)
				return
			}
			if ok {
				mu.Lock()
				activated++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if activated != limit {
		t.Errorf("activated = %d, want exactly %d", activated, limit)
	}
	n, _ := store.CountLive(ctx, "r-1", campaign.KindPromotion, now)
	if n != limit {
		t.Errorf("CountLive = %d, want %d", n, limit)
	}
}

func TestNotificationStore_MarkSent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewNotificationStore()
	at := time.Now().UTC()

	if err := store.Create(ctx, ports.Notification{ID: "n-1", RestaurantID: "r-1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.MarkSent(ctx, "n-1", at); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := store.MarkSent(ctx, "n-1", at); err != memory.ErrNotFound {
		t.Errorf("second mark err = %v", err)
	}
}

func TestAuditStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAuditStore()

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		if err := store.Record(ctx, ports.AuditEntry{ID: id, RestaurantID: "r-1"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := store.ListByRestaurant(ctx, "r-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a-3" {
		t.Errorf("list = %+v, want newest first capped at 2", got)
	}
}
