// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stamply/stamply/ports"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = errors.New("not found")

// RestaurantStore is an in-memory implementation of ports.RestaurantStore.
type RestaurantStore struct {
	mu          sync.RWMutex
	restaurants map[string]ports.Restaurant // by ID
}

// NewRestaurantStore creates a new in-memory restaurant store.
func NewRestaurantStore() *RestaurantStore {
	return &RestaurantStore{
		restaurants: make(map[string]ports.Restaurant),
	}
}

// Get retrieves a restaurant by ID.
func (s *RestaurantStore) Get(ctx context.Context, id string) (ports.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.restaurants[id]
	if !ok {
		return ports.Restaurant{}, ErrNotFound
	}
	return r, nil
}

// GetByCustomerID retrieves a restaurant by billing customer id.
func (s *RestaurantStore) GetByCustomerID(ctx context.Context, customerID string) (ports.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.restaurants {
		if r.BillingCustomerID == customerID && customerID != "" {
			return r, nil
		}
	}
	return ports.Restaurant{}, ErrNotFound
}

// Create stores a new restaurant.
func (s *RestaurantStore) Create(ctx context.Context, r ports.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restaurants[r.ID] = r
	return nil
}

// Update modifies an existing restaurant.
func (s *RestaurantStore) Update(ctx context.Context, r ports.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.restaurants[r.ID]; !ok {
		return ErrNotFound
	}
	s.restaurants[r.ID] = r
	return nil
}

// List returns all restaurants ordered by ID.
func (s *RestaurantStore) List(ctx context.Context) ([]ports.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ports.Restaurant, 0, len(s.restaurants))
	for _, r := range s.restaurants {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// IncrementNotificationsSent atomically bumps the monthly counter iff it is
// still under limit. A negative limit means unlimited.
func (s *RestaurantStore) IncrementNotificationsSent(ctx context.Context, id string, limit int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.restaurants[id]
	if !ok {
		return false, ErrNotFound
	}
	if limit >= 0 && r.NotificationsSentThisMonth >= limit {
		return false, nil
	}
	r.NotificationsSentThisMonth++
	s.restaurants[id] = r
	return true, nil
}

// DecrementNotificationsSent returns one quota slot, never below zero.
func (s *RestaurantStore) DecrementNotificationsSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.restaurants[id]
	if !ok {
		return ErrNotFound
	}
	if r.NotificationsSentThisMonth > 0 {
		r.NotificationsSentThisMonth--
	}
	s.restaurants[id] = r
	return nil
}

// ResetNotifications zeroes the monthly counter and records the reset time.
func (s *RestaurantStore) ResetNotifications(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.restaurants[id]
	if !ok {
		return ErrNotFound
	}
	r.NotificationsSentThisMonth = 0
	r.LastNotificationReset = at
	s.restaurants[id] = r
	return nil
}

var _ ports.RestaurantStore = (*RestaurantStore)(nil)
