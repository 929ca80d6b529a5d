package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stamply/stamply/domain/campaign"
	"github.com/stamply/stamply/ports"
)

// CampaignStore is an in-memory implementation of ports.CampaignStore.
type CampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]campaign.Campaign // by ID
}

// NewCampaignStore creates a new in-memory campaign store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		campaigns: make(map[string]campaign.Campaign),
	}
}

// Get retrieves a campaign by ID.
func (s *CampaignStore) Get(ctx context.Context, id string) (campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return campaign.Campaign{}, ErrNotFound
	}
	return c, nil
}

// Create stores a new campaign.
func (s *CampaignStore) Create(ctx context.Context, c campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.campaigns[c.ID] = c
	return nil
}

// ListByRestaurant returns non-deleted campaigns of a kind for a restaurant.
func (s *CampaignStore) ListByRestaurant(ctx context.Context, restaurantID string, kind campaign.Kind) ([]campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []campaign.Campaign
	for _, c := range s.campaigns {
		if c.RestaurantID == restaurantID && c.Kind == kind && c.DeletedAt == nil {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CountLive counts campaigns currently holding a live slot.
func (s *CampaignStore) CountLive(ctx context.Context, restaurantID string, kind campaign.Kind, today time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countLiveLocked(restaurantID, kind, today), nil
}

func (s *CampaignStore) countLiveLocked(restaurantID string, kind campaign.Kind, today time.Time) int64 {
	var n int64
	for _, c := range s.campaigns {
		if c.RestaurantID == restaurantID && c.Kind == kind && c.IsLive(today) {
			n++
		}
	}
	return n
}

// ActivateIfUnderLimit flips a draft to live while the live count for the kind
// stays below limit. A negative limit means unlimited.
func (s *CampaignStore) ActivateIfUnderLimit(ctx context.Context, id string, limit int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return false, ErrNotFound
	}
	if !c.CanGoLive() {
		return false, nil
	}
	if limit >= 0 && s.countLiveLocked(c.RestaurantID, c.Kind, now) >= limit {
		return false, nil
	}
	c.Status = campaign.StatusLive
	c.UpdatedAt = now
	s.campaigns[id] = c
	return true, nil
}

// SoftDelete marks a draft campaign deleted.
func (s *CampaignStore) SoftDelete(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok || !c.CanDelete() {
		return ErrNotFound
	}
	c.DeletedAt = &at
	c.UpdatedAt = at
	s.campaigns[id] = c
	return nil
}

var _ ports.CampaignStore = (*CampaignStore)(nil)
