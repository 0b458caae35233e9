package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	balances  map[string]map[string]decimal.Decimal // keyed by wallet
	updatedAt map[string]time.Time
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		balances:  make(map[string]map[string]decimal.Decimal),
		updatedAt: make(map[string]time.Time),
	}
}

// Load retrieves the balance snapshot for a wallet. Returns an empty map
// when no snapshot exists.
func (s *SnapshotStore) Load(_ context.Context, wallet string) (map[string]decimal.Decimal, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.balances[wallet]
	out := make(map[string]decimal.Decimal, len(stored))
	if !exists {
		return out, nil
	}
	for mint, amount := range stored {
		out[mint] = amount
	}
	return out, nil
}

// Save replaces the balance snapshot for a wallet.
func (s *SnapshotStore) Save(_ context.Context, wallet string, balances map[string]decimal.Decimal) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	stored := make(map[string]decimal.Decimal, len(balances))
	for mint, amount := range balances {
		stored[mint] = amount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[wallet] = stored
	s.updatedAt[wallet] = time.Now().UTC()
	return nil
}

// UpdatedAt returns when the wallet's snapshot was last saved.
func (s *SnapshotStore) UpdatedAt(_ context.Context, wallet string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, exists := s.updatedAt[wallet]
	if !exists {
		return time.Time{}, storage.ErrNotFound
	}
	return ts, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
