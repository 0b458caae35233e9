package memory

import (
	"context"
	"fmt"
	"sync"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/storage"
)

// DefaultHistoryCap bounds the number of retained events.
const DefaultHistoryCap = 300

// EventHistoryStore is an in-memory implementation of
// storage.EventHistoryStore. Events are kept newest-first; appends past
// the cap evict the oldest entries.
type EventHistoryStore struct {
	mu     sync.RWMutex
	events []domain.AirdropEvent // ordered by DetectedAt DESC
	seen   map[string]struct{}
	cap    int
}

// NewEventHistoryStore creates a new in-memory event history store with
// the default retention cap.
func NewEventHistoryStore() *EventHistoryStore {
	return NewEventHistoryStoreWithCap(DefaultHistoryCap)
}

// NewEventHistoryStoreWithCap creates a store retaining at most cap events.
func NewEventHistoryStoreWithCap(cap int) *EventHistoryStore {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	return &EventHistoryStore{
		seen: make(map[string]struct{}),
		cap:  cap,
	}
}

// dedupSignature identifies an event independent of its generated ID, so
// a re-detected event is not stored twice.
func dedupSignature(e domain.AirdropEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", e.Wallet, e.Mint, e.NewAmount.String(), e.DetectedAt.UnixMilli())
}

// Append stores a new event. Duplicates are silently ignored, and at
// capacity an event older than everything retained is dropped.
func (s *EventHistoryStore) Append(_ context.Context, event domain.AirdropEvent) error {
	if event.Wallet == "" || event.Mint == "" {
		return storage.ErrInvalidInput
	}

	sig := dedupSignature(event)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[sig]; exists {
		return nil
	}
	s.seen[sig] = struct{}{}

	// Insert keeping DetectedAt DESC order; new events usually go first.
	idx := 0
	for idx < len(s.events) && s.events[idx].DetectedAt.After(event.DetectedAt) {
		idx++
	}
	s.events = append(s.events, domain.AirdropEvent{})
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = event

	if len(s.events) > s.cap {
		for _, old := range s.events[s.cap:] {
			delete(s.seen, dedupSignature(old))
		}
		s.events = s.events[:s.cap]
	}
	return nil
}

// Recent retrieves the most recent events across all wallets.
func (s *EventHistoryStore) Recent(_ context.Context, limit int) ([]domain.AirdropEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]domain.AirdropEvent, limit)
	copy(out, s.events[:limit])
	return out, nil
}

// RecentByWallet retrieves the most recent events for one wallet.
func (s *EventHistoryStore) RecentByWallet(_ context.Context, wallet string, limit int) ([]domain.AirdropEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AirdropEvent
	for _, e := range s.events {
		if e.Wallet != wallet {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Clear removes all stored events.
func (s *EventHistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.seen = make(map[string]struct{})
	return nil
}

var _ storage.EventHistoryStore = (*EventHistoryStore)(nil)
