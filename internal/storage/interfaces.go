package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/domain"
)

// SnapshotStore persists the last observed balance map per wallet. A
// missing snapshot is reported as empty, not as an error, so the first
// check of a wallet behaves like a check against zero balances.
type SnapshotStore interface {
	// Load retrieves the balance snapshot for a wallet. Returns an empty
	// map when no snapshot exists.
	Load(ctx context.Context, wallet string) (map[string]decimal.Decimal, error)

	// Save replaces the balance snapshot for a wallet atomically.
	Save(ctx context.Context, wallet string, balances map[string]decimal.Decimal) error

	// UpdatedAt returns when the wallet's snapshot was last saved.
	// Returns ErrNotFound when no snapshot exists.
	UpdatedAt(ctx context.Context, wallet string) (time.Time, error)
}

// EventHistoryStore persists detected airdrop events. Appends are
// idempotent on (wallet, mint, new amount, detection time); retention is
// bounded and oldest events are evicted first.
type EventHistoryStore interface {
	// Append stores a new event. A duplicate of an already stored event
	// is silently ignored.
	Append(ctx context.Context, event domain.AirdropEvent) error

	// Recent retrieves the most recent events across all wallets,
	// ordered by detection time DESC.
	Recent(ctx context.Context, limit int) ([]domain.AirdropEvent, error)

	// RecentByWallet retrieves the most recent events for one wallet,
	// ordered by detection time DESC.
	RecentByWallet(ctx context.Context, wallet string, limit int) ([]domain.AirdropEvent, error)

	// Clear removes all stored events.
	Clear(ctx context.Context) error
}

// CheckTimeseriesStore records one row per completed check run for
// offline analysis.
type CheckTimeseriesStore interface {
	// InsertBulk adds multiple check records.
	InsertBulk(ctx context.Context, records []*domain.CheckRecord) error

	// GetByWallet retrieves all records for a wallet, ordered by
	// timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.CheckRecord, error)

	// GetByTimeRange retrieves records for a wallet within [start, end]
	// (inclusive, epoch milliseconds).
	GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.CheckRecord, error)
}
