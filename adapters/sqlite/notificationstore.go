package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stamply/stamply/ports"
)

// NotificationStore implements ports.NotificationStore using SQLite.
type NotificationStore struct {
	db *DB
}

// NewNotificationStore creates a new SQLite notification store.
func NewNotificationStore(db *DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (ports.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, title, body, scheduled_for, sent_at, created_at
		FROM notifications
		WHERE id = ?
	`, id)

	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Notification{}, ErrNotFound
	}
	return n, err
}

// Create stores a new notification.
func (s *NotificationStore) Create(ctx context.Context, n ports.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, restaurant_id, title, body, scheduled_for, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.RestaurantID, n.Title, n.Body,
		nullTime(n.ScheduledFor), nullTime(n.SentAt), n.CreatedAt,
	)
	if err != nil && isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// MarkSent records the send time. Already-sent notifications are left alone.
func (s *NotificationStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET sent_at = ?
		WHERE id = ? AND sent_at IS NULL
	`, at, id)
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

// ListByRestaurant returns recent notifications for a restaurant.
func (s *NotificationStore) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]ports.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, title, body, scheduled_for, sent_at, created_at
		FROM notifications
		WHERE restaurant_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, restaurantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row rowScanner) (ports.Notification, error) {
	var n ports.Notification
	var scheduledFor, sentAt sql.NullTime

	err := row.Scan(&n.ID, &n.RestaurantID, &n.Title, &n.Body, &scheduledFor, &sentAt, &n.CreatedAt)
	if err != nil {
		return ports.Notification{}, err
	}

	if scheduledFor.Valid {
		t := scheduledFor.Time
		n.ScheduledFor = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return n, nil
}

// Ensure interface compliance.
var _ ports.NotificationStore = (*NotificationStore)(nil)
