package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
	"github.com/stamply/stamply/ports"
)

// RestaurantStore implements ports.RestaurantStore using SQLite.
type RestaurantStore struct {
	db *DB
}

// NewRestaurantStore creates a new SQLite restaurant store.
func NewRestaurantStore(db *DB) *RestaurantStore {
	return &RestaurantStore{db: db}
}

const restaurantColumns = `
	id, name, owner_email, staff_emails,
	subscription_tier, subscription_status, subscription_started_at, subscription_ends_at,
	billing_type, pending_tier, pending_billing_type, plan_change_effective_date,
	billing_customer_id, billing_subscription_id, billing_item_id, last_checkout_session_id,
	notifications_sent_this_month, last_notification_reset,
	created_at, updated_at`

// Get retrieves a restaurant by ID.
func (s *RestaurantStore) Get(ctx context.Context, id string) (ports.Restaurant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE id = ?
	`, id)
	return scanRestaurant(row)
}

// GetByCustomerID retrieves a restaurant by billing customer id.
func (s *RestaurantStore) GetByCustomerID(ctx context.Context, customerID string) (ports.Restaurant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE billing_customer_id = ?
	`, customerID)
	return scanRestaurant(row)
}

// Create stores a new restaurant.
func (s *RestaurantStore) Create(ctx context.Context, r ports.Restaurant) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}

	staff, err := json.Marshal(r.StaffEmails)
	if err != nil {
		return err
	}

	pendingTier, pendingBilling := pendingColumns(r.PendingChange)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO restaurants (`+restaurantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.Name, r.OwnerEmail, string(staff),
		string(r.SubscriptionTier), string(r.SubscriptionStatus),
		zeroNullTime(r.SubscriptionStartedAt), zeroNullTime(r.SubscriptionEndsAt),
		string(r.BillingType), pendingTier, pendingBilling, nullTime(r.PlanChangeEffectiveDate),
		r.BillingCustomerID, r.BillingSubscriptionID, r.BillingItemID, r.LastCheckoutSessionID,
		r.NotificationsSentThisMonth, zeroNullTime(r.LastNotificationReset),
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil && isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing restaurant.
func (s *RestaurantStore) Update(ctx context.Context, r ports.Restaurant) error {
	r.UpdatedAt = time.Now().UTC()

	staff, err := json.Marshal(r.StaffEmails)
	if err != nil {
		return err
	}

	pendingTier, pendingBilling := pendingColumns(r.PendingChange)

	result, err := s.db.ExecContext(ctx, `
		UPDATE restaurants
		SET name = ?, owner_email = ?, staff_emails = ?,
		    subscription_tier = ?, subscription_status = ?,
		    subscription_started_at = ?, subscription_ends_at = ?,
		    billing_type = ?, pending_tier = ?, pending_billing_type = ?,
		    plan_change_effective_date = ?,
		    billing_customer_id = ?, billing_subscription_id = ?,
		    billing_item_id = ?, last_checkout_session_id = ?,
		    notifications_sent_this_month = ?, last_notification_reset = ?,
		    updated_at = ?
		WHERE id = ?
	`,
		r.Name, r.OwnerEmail, string(staff),
		string(r.SubscriptionTier), string(r.SubscriptionStatus),
		zeroNullTime(r.SubscriptionStartedAt), zeroNullTime(r.SubscriptionEndsAt),
		string(r.BillingType), pendingTier, pendingBilling,
		nullTime(r.PlanChangeEffectiveDate),
		r.BillingCustomerID, r.BillingSubscriptionID,
		r.BillingItemID, r.LastCheckoutSessionID,
		r.NotificationsSentThisMonth, zeroNullTime(r.LastNotificationReset),
		r.UpdatedAt, r.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all restaurants.
func (s *RestaurantStore) List(ctx context.Context) ([]ports.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.Restaurant
	for rows.Next() {
		r, err := scanRestaurantRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementNotificationsSent atomically bumps the monthly counter while it is
// under limit. The check and the increment are a single statement, so two
// concurrent sends cannot both squeeze past the cap.
func (s *RestaurantStore) IncrementNotificationsSent(ctx context.Context, id string, limit int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE restaurants
		SET notifications_sent_this_month = notifications_sent_this_month + 1,
		    updated_at = ?
		WHERE id = ?
		  AND (? < 0 OR notifications_sent_this_month < ?)
	`, time.Now().UTC(), id, limit, limit)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	// Distinguish "cap reached" from "no such restaurant".
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM restaurants WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// DecrementNotificationsSent returns one quota slot, never below zero.
func (s *RestaurantStore) DecrementNotificationsSent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE restaurants
		SET notifications_sent_this_month = MAX(notifications_sent_this_month - 1, 0),
		    updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetNotifications zeroes the monthly counter and records the reset time.
func (s *RestaurantStore) ResetNotifications(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE restaurants
		SET notifications_sent_this_month = 0,
		    last_notification_reset = ?,
		    updated_at = ?
		WHERE id = ?
	`, at, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row *sql.Row) (ports.Restaurant, error) {
	r, err := scanRestaurantFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Restaurant{}, ErrNotFound
	}
	return r, err
}

func scanRestaurantRows(rows *sql.Rows) (ports.Restaurant, error) {
	return scanRestaurantFrom(rows)
}

func scanRestaurantFrom(row rowScanner) (ports.Restaurant, error) {
	var r ports.Restaurant
	var staff string
	var tierStr, statusStr, billingTypeStr string
	var startedAt, endsAt, effectiveDate, lastReset sql.NullTime
	var pendingTier, pendingBilling sql.NullString

	err := row.Scan(
		&r.ID, &r.Name, &r.OwnerEmail, &staff,
		&tierStr, &statusStr, &startedAt, &endsAt,
		&billingTypeStr, &pendingTier, &pendingBilling, &effectiveDate,
		&r.BillingCustomerID, &r.BillingSubscriptionID, &r.BillingItemID, &r.LastCheckoutSessionID,
		&r.NotificationsSentThisMonth, &lastReset,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return ports.Restaurant{}, err
	}

	if err := json.Unmarshal([]byte(staff), &r.StaffEmails); err != nil {
		return ports.Restaurant{}, err
	}

	r.SubscriptionTier = tier.Tier(tierStr)
	r.SubscriptionStatus = billing.Status(statusStr)
	r.BillingType = billing.BillingType(billingTypeStr)
	if startedAt.Valid {
		r.SubscriptionStartedAt = startedAt.Time
	}
	if endsAt.Valid {
		r.SubscriptionEndsAt = endsAt.Time
	}
	if lastReset.Valid {
		r.LastNotificationReset = lastReset.Time
	}
	if effectiveDate.Valid {
		t := effectiveDate.Time
		r.PlanChangeEffectiveDate = &t
	}
	if pendingTier.Valid && pendingBilling.Valid {
		r.PendingChange = &billing.PendingChange{
			Tier:        tier.Tier(pendingTier.String),
			BillingType: billing.BillingType(pendingBilling.String),
		}
	}

	return r, nil
}

func pendingColumns(pc *billing.PendingChange) (sql.NullString, sql.NullString) {
	if pc == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: string(pc.Tier), Valid: true},
		sql.NullString{String: string(pc.BillingType), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func zeroNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure interface compliance.
var _ ports.RestaurantStore = (*RestaurantStore)(nil)
