package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stamply/stamply/ports"
)

// NotificationStore is an in-memory implementation of ports.NotificationStore.
type NotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]ports.Notification // by ID
}

// NewNotificationStore creates a new in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[string]ports.Notification),
	}
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (ports.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return ports.Notification{}, ErrNotFound
	}
	return n, nil
}

// Create stores a new notification.
func (s *NotificationStore) Create(ctx context.Context, n ports.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[n.ID] = n
	return nil
}

// MarkSent records the send time. Already-sent notifications are left alone.
func (s *NotificationStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.SentAt != nil {
		return ErrNotFound
	}
	n.SentAt = &at
	s.notifications[id] = n
	return nil
}

// ListByRestaurant returns recent notifications for a restaurant.
func (s *NotificationStore) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]ports.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.Notification
	for _, n := range s.notifications {
		if n.RestaurantID == restaurantID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ ports.NotificationStore = (*NotificationStore)(nil)
