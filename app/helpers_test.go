package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/clock"
	"github.com/stamply/stamply/adapters/idgen"
	"github.com/stamply/stamply/adapters/memory"
	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
	"github.com/stamply/stamply/ports"
)

// mockPayment is a hand-rolled ports.PaymentProvider that records calls and
// returns canned results.
type mockPayment struct {
	checkoutURL     string
	checkoutErr     error
	gotPriceID      string
	gotMetadata     map[string]string
	portalURL       string
	portalErr       error
	sub             billing.Subscription
	getErr          error
	updatedPriceID  string
	updatedItemID   string
	updateResult    billing.Subscription
	updateErr       error
	cancelFlags     []bool
	cancelResult    billing.Subscription
	cancelErr       error
	usageItemID     string
	usageQty        int64
	usageErr        error
	parseType       string
	parseData       map[string]any
	parseErr        error
	gotParsePayload []byte
	gotParseSig     string
}

func (m *mockPayment) Name() string { return "stripe" }

func (m *mockPayment) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string, metadata map[string]string) (string, error) {
	m.gotPriceID = priceID
	m.gotMetadata = metadata
	return m.checkoutURL, m.checkoutErr
}

func (m *mockPayment) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return m.portalURL, m.portalErr
}

func (m *mockPayment) GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	return m.sub, m.getErr
}

func (m *mockPayment) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (billing.Subscription, error) {
	m.updatedItemID = itemID
	m.updatedPriceID = priceID
	return m.updateResult, m.updateErr
}

func (m *mockPayment) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (billing.Subscription, error) {
	m.cancelFlags = append(m.cancelFlags, cancel)
	return m.cancelResult, m.cancelErr
}

func (m *mockPayment) ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, timestamp time.Time) error {
	m.usageItemID = subscriptionItemID
	m.usageQty = quantity
	return m.usageErr
}

func (m *mockPayment) ParseWebhook(payload []byte, signature string) (string, map[string]any, error) {
	m.gotParsePayload = payload
	m.gotParseSig = signature
	return m.parseType, m.parseData, m.parseErr
}

var _ ports.PaymentProvider = (*mockPayment)(nil)

// testEnv bundles the in-memory infrastructure most service tests need.
type testEnv struct {
	restaurants   *memory.RestaurantStore
	campaigns     *memory.CampaignStore
	notifications *memory.NotificationStore
	audit         *memory.AuditStore
	clock         *clock.Fake
	idGen         *idgen.Sequential
	logger        zerolog.Logger
}

func newTestEnv() *testEnv {
	return &testEnv{
		restaurants:   memory.NewRestaurantStore(),
		campaigns:     memory.NewCampaignStore(),
		notifications: memory.NewNotificationStore(),
		audit:         memory.NewAuditStore(),
		clock:         clock.NewFake(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)),
		idGen:         idgen.NewSequential("id-"),
		logger:        zerolog.Nop(),
	}
}

func (e *testEnv) entitlementService() *EntitlementService {
	return NewEntitlementService(e.restaurants, e.campaigns, e.clock, nil, e.logger)
}

func (e *testEnv) seedRestaurant(id string, t tier.Tier) ports.Restaurant {
	r := ports.Restaurant{
		ID:                    id,
		Name:                  "Test Restaurant",
		OwnerEmail:            "owner@example.com",
		SubscriptionTier:      t,
		SubscriptionStatus:    billing.StatusActive,
		SubscriptionStartedAt: e.clock.Now().AddDate(0, -1, -5),
		BillingType:           billing.BillingMonthly,
		LastNotificationReset: e.clock.Now().AddDate(0, 0, -2),
	}
	e.restaurants.Create(context.Background(), r)
	return r
}

func testPriceTable() billing.PriceTable {
	return billing.NewPriceTable(map[tier.Tier]map[billing.BillingType]string{
		tier.Basic: {
			billing.BillingMonthly: "price_basic_monthly",
			billing.BillingMetered: "price_basic_metered",
		},
		tier.Premium: {
			billing.BillingMonthly: "price_premium_monthly",
			billing.BillingMetered: "price_premium_metered",
		},
		tier.Enterprise: {
			billing.BillingMonthly: "price_enterprise_monthly",
		},
	})
}
