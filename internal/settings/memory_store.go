package settings

import (
	"context"
	"sync"
	"time"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	settings *domain.PaymentSettings
}

// NewMemoryStore starts at revision 1 with empty settings, matching the
// row the initial migration seeds.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: &domain.PaymentSettings{
			ID:        1,
			Revision:  1,
			UpdatedAt: time.Now().UTC(),
		},
	}
}

func (s *MemoryStore) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, errors.ErrSettingsNotFound
	}
	copied := *s.settings
	return &copied, nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, baseRevision int64, settings *domain.PaymentSettings) (*domain.PaymentSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return nil, errors.ErrSettingsNotFound
	}
	if s.settings.Revision != baseRevision {
		return nil, errors.ErrStaleRevision
	}

	updated := *settings
	updated.ID = s.settings.ID
	updated.Revision = s.settings.Revision + 1
	updated.UpdatedAt = time.Now().UTC()
	s.settings = &updated

	copied := updated
	return &copied, nil
}
