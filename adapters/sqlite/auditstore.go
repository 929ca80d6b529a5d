package sqlite

import (
	"context"
	"time"

	"github.com/stamply/stamply/ports"
)

// AuditStore implements ports.AuditStore using SQLite.
type AuditStore struct {
	db *DB
}

// NewAuditStore creates a new SQLite audit store.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record stores an audit entry.
func (s *AuditStore) Record(ctx context.Context, e ports.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, restaurant_id, actor, feature, action, allowed, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.RestaurantID, e.Actor, e.Feature, e.Action,
		boolToInt(e.Allowed), e.Detail, e.CreatedAt,
	)
	return err
}

// ListByRestaurant returns recent entries for a restaurant.
func (s *AuditStore) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]ports.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, actor, feature, action, allowed, detail, created_at
		FROM audit_log
		WHERE restaurant_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, restaurantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.AuditEntry
	for rows.Next() {
		var e ports.AuditEntry
		var allowed int
		if err := rows.Scan(&e.ID, &e.RestaurantID, &e.Actor, &e.Feature, &e.Action, &allowed, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Allowed = allowed == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure interface compliance.
var _ ports.AuditStore = (*AuditStore)(nil)
