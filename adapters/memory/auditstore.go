package memory

import (
	"context"
	"sync"

	"github.com/stamply/stamply/ports"
)

// AuditStore is an in-memory implementation of ports.AuditStore.
type AuditStore struct {
	mu      sync.RWMutex
	entries []ports.AuditEntry
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Record stores an audit entry.
func (s *AuditStore) Record(ctx context.Context, e ports.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	return nil
}

// ListByRestaurant returns recent entries for a restaurant, newest first.
func (s *AuditStore) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]ports.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.AuditEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].RestaurantID == restaurantID {
			result = append(result, s.entries[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

var _ ports.AuditStore = (*AuditStore)(nil)
