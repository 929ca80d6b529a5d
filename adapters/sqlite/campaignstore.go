package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/ports"
)

// CampaignStore implements ports.CampaignStore using SQLite.
type CampaignStore struct {
	db *DB
}

// NewCampaignStore creates a new SQLite campaign store.
func NewCampaignStore(db *DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// liveCountWhere counts campaigns holding a live slot: live, not deleted,
// and for events not yet in the past.
const liveCountWhere = `
	c2.restaurant_id = ?
	AND c2.kind = ?
	AND c2.status = 'live'
	AND c2.deleted_at IS NULL
	AND (c2.kind != 'event' OR c2.event_date IS NULL OR date(c2.event_date) >= date(?))`

// Get retrieves a campaign by ID.
func (s *CampaignStore) Get(ctx context.Context, id string) (campaign.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, kind, name, status, event_date,
		       created_at, updated_at, deleted_at
		FROM campaigns
		WHERE id = ?
	`, id)
	return scanCampaign(row)
}

// Create stores a new campaign.
func (s *CampaignStore) Create(ctx context.Context, c campaign.Campaign) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, restaurant_id, kind, name, status, event_date,
		                       created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.RestaurantID, string(c.Kind), c.Name, string(c.Status),
		nullTime(c.EventDate), c.CreatedAt, c.UpdatedAt, nullTime(c.DeletedAt),
	)
	if err != nil && isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// ListByRestaurant returns non-deleted campaigns of a kind for a restaurant.
func (s *CampaignStore) ListByRestaurant(ctx context.Context, restaurantID string, kind campaign.Kind) ([]campaign.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, kind, name, status, event_date,
		       created_at, updated_at, deleted_at
		FROM campaigns
		WHERE restaurant_id = ? AND kind = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, restaurantID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Campaign
	for rows.Next() {
		c, err := scanCampaignFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountLive counts campaigns currently occupying a live slot.
func (s *CampaignStore) CountLive(ctx context.Context, restaurantID string, kind campaign.Kind, today time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM campaigns c2 WHERE `+liveCountWhere,
		restaurantID, string(kind), today,
	).Scan(&n)
	return n, err
}

// ActivateIfUnderLimit flips a draft to live only while the restaurant's live
// count for that kind is below limit. The count and the transition happen in
// one statement, so concurrent activations cannot both claim the last slot.
func (s *CampaignStore) ActivateIfUnderLimit(ctx context.Context, id string, limit int64, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'live', updated_at = ?
		WHERE id = ?
		  AND status = 'draft'
		  AND deleted_at IS NULL
		  AND (? < 0 OR (
		      SELECT COUNT(*) FROM campaigns c2
		      WHERE c2.restaurant_id = campaigns.restaurant_id
		        AND c2.kind = campaigns.kind
		        AND c2.status = 'live'
		        AND c2.deleted_at IS NULL
		        AND (c2.kind != 'event' OR c2.event_date IS NULL OR date(c2.event_date) >= date(?))
		  ) < ?)
	`, now.UTC(), id, limit, now.UTC(), limit)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// SoftDelete marks a draft campaign deleted. Live campaigns are untouchable.
func (s *CampaignStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'draft' AND deleted_at IS NULL
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

func scanCampaign(row *sql.Row) (campaign.Campaign, error) {
	c, err := scanCampaignFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Campaign{}, ErrNotFound
	}
	return c, err
}

func scanCampaignFrom(row rowScanner) (campaign.Campaign, error) {
	var c campaign.Campaign
	var kind, status string
	var eventDate, deletedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.RestaurantID, &kind, &c.Name, &status, &eventDate,
		&c.CreatedAt, &c.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return campaign.Campaign{}, err
	}

	c.Kind = campaign.Kind(kind)
	c.Status = campaign.Status(status)
	if eventDate.Valid {
		t := eventDate.Time
		c.EventDate = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return c, nil
}

// Ensure interface compliance.
var _ ports.CampaignStore = (*CampaignStore)(nil)
