// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/domain/tier"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Restaurant represents a tenant account with its subscription state.
type Restaurant struct {
	ID          string
	Name        string
	OwnerEmail  string
	StaffEmails []string

	SubscriptionTier      tier.Tier
	SubscriptionStatus    billing.Status
	SubscriptionStartedAt time.Time // anchor for monthly resets; zero until first checkout
	SubscriptionEndsAt    time.Time
	BillingType           billing.BillingType

	// A scheduled plan change. PendingChange and PlanChangeEffectiveDate are
	// set and cleared together.
	PendingChange           *billing.PendingChange
	PlanChangeEffectiveDate *time.Time

	BillingCustomerID     string
	BillingSubscriptionID string
	BillingItemID         string // metered-usage line item, empty unless metered
	LastCheckoutSessionID string

	NotificationsSentThisMonth int64
	LastNotificationReset      time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RestaurantStore persists restaurant accounts.
type RestaurantStore interface {
	// Get retrieves a restaurant by ID.
	Get(ctx context.Context, id string) (Restaurant, error)

	// GetByCustomerID retrieves a restaurant by billing customer id.
	GetByCustomerID(ctx context.Context, customerID string) (Restaurant, error)

	// Create stores a new restaurant.
	Create(ctx context.Context, r Restaurant) error

	// Update modifies an existing restaurant.
	Update(ctx context.Context, r Restaurant) error

	// List returns all restaurants (for the reset sweep).
	List(ctx context.Context) ([]Restaurant, error)

	// IncrementNotificationsSent atomically bumps the monthly counter iff it
	// is still under limit. Returns false when the cap was already reached.
	// A negative limit means unlimited.
	IncrementNotificationsSent(ctx context.Context, id string, limit int64) (bool, error)

	// DecrementNotificationsSent returns one quota slot, never below zero.
	// Used to undo an increment when the send could not be completed.
	DecrementNotificationsSent(ctx context.Context, id string) error

	// ResetNotifications zeroes the monthly counter and records the reset time.
	ResetNotifications(ctx context.Context, id string, at time.Time) error
}

// CampaignStore persists loyalty cards, promotions, and events.
type CampaignStore interface {
	// Get retrieves a campaign by ID.
	Get(ctx context.Context, id string) (campaign.Campaign, error)

	// Create stores a new campaign.
	Create(ctx context.Context, c campaign.Campaign) error

	// ListByRestaurant returns non-deleted campaigns of a kind for a restaurant.
	ListByRestaurant(ctx context.Context, restaurantID string, kind campaign.Kind) ([]campaign.Campaign, error)

	// CountLive counts campaigns currently holding a live slot: live status,
	// not soft-deleted, and for events an event date on or after today.
	CountLive(ctx context.Context, restaurantID string, kind campaign.Kind, today time.Time) (int64, error)

	// ActivateIfUnderLimit flips a draft to live in a single conditional
	// update: the transition succeeds only while the restaurant's live count
	// for the kind is below limit. Returns false when the slot was taken by a
	// concurrent activation or the campaign is not an activatable draft.
	// A negative limit means unlimited.
	ActivateIfUnderLimit(ctx context.Context, id string, limit int64, now time.Time) (bool, error)

	// SoftDelete marks a draft campaign deleted.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// Notification represents a push notification.
type Notification struct {
	ID           string
	RestaurantID string
	Title        string
	Body         string
	ScheduledFor *time.Time
	SentAt       *time.Time // nil while scheduled; only sent notifications count
	CreatedAt    time.Time
}

// NotificationStore persists notifications.
type NotificationStore interface {
	// Get retrieves a notification by ID.
	Get(ctx context.Context, id string) (Notification, error)

	// Create stores a new notification.
	Create(ctx context.Context, n Notification) error

	// MarkSent records the send time.
	MarkSent(ctx context.Context, id string, at time.Time) error

	// ListByRestaurant returns recent notifications for a restaurant.
	ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]Notification, error)
}

// AuditEntry records who attempted what against the entitlement gate.
type AuditEntry struct {
	ID           string
	RestaurantID string
	Actor        string
	Feature      string
	Action       string
	Allowed      bool
	Detail       string
	CreatedAt    time.Time
}

// AuditStore persists staff audit entries.
type AuditStore interface {
	// Record stores an audit entry.
	Record(ctx context.Context, e AuditEntry) error

	// ListByRestaurant returns recent entries for a restaurant.
	ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]AuditEntry, error)
}

// -----------------------------------------------------------------------------
// Payment Provider Ports
// -----------------------------------------------------------------------------

// PaymentProvider interfaces with the payment processor (Stripe).
type PaymentProvider interface {
	// Name returns the provider name (e.g., "stripe").
	Name() string

	// CreateCheckoutSession opens a hosted checkout session and returns its URL.
	// Metadata is attached to the session and echoed back in webhooks.
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string, metadata map[string]string) (sessionURL string, err error)

	// CreatePortalSession creates a self-service billing portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (portalURL string, err error)

	// GetSubscription retrieves subscription details.
	GetSubscription(ctx context.Context, subscriptionID string) (billing.Subscription, error)

	// UpdateSubscriptionPrice swaps the subscription's line item to a new
	// price with no proration. It also clears any scheduled cancellation, so
	// the change applies at the next renewal, never immediately.
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (billing.Subscription, error)

	// SetCancelAtPeriodEnd schedules or reverts an end-of-period cancellation.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (billing.Subscription, error)

	// ReportUsage posts an incremental metered usage record.
	ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, timestamp time.Time) error

	// ParseWebhook verifies an incoming webhook's signature and returns the
	// event type and payload.
	ParseWebhook(payload []byte, signature string) (eventType string, data map[string]any, err error)
}
