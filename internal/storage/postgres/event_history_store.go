package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
	"airdrop-sentinel/internal/storage"
)

// EventHistoryStore implements storage.EventHistoryStore using PostgreSQL.
type EventHistoryStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// EventHistoryStoreOption configures EventHistoryStore.
type EventHistoryStoreOption func(*EventHistoryStore)

// WithMetrics wires prometheus metrics into the store.
func WithMetrics(m *observability.Metrics) EventHistoryStoreOption {
	return func(s *EventHistoryStore) {
		s.metrics = m
	}
}

// NewEventHistoryStore creates a new EventHistoryStore.
func NewEventHistoryStore(pool *Pool, opts ...EventHistoryStoreOption) *EventHistoryStore {
	s := &EventHistoryStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventHistoryStore) recordQuery(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

// Compile-time interface check.
var _ storage.EventHistoryStore = (*EventHistoryStore)(nil)

// Append stores a new event. A duplicate of an already stored event is
// silently ignored via the dedup constraint.
func (s *EventHistoryStore) Append(ctx context.Context, e domain.AirdropEvent) error {
	if e.Wallet == "" || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO event_history (
			id, wallet, mint, old_amount, new_amount,
			symbol, name, logo_url, website_url, external_id, tags, verified,
			risk_level, risk_score, risk_reasons, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT ON CONSTRAINT event_history_dedup DO NOTHING
	`

	tags := e.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	reasons := e.Risk.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.Wallet, e.Mint, e.OldAmount.String(), e.NewAmount.String(),
		e.Metadata.Symbol, e.Metadata.Name, e.Metadata.LogoURL,
		e.Metadata.WebsiteURL, e.Metadata.ExternalID, tags, e.Metadata.Verified,
		string(e.Risk.Level), e.Risk.Score, reasons, e.DetectedAt,
	)
	s.recordQuery("append", start, err)
	if err != nil {
		// The dedup constraint normally absorbs duplicates via
		// ON CONFLICT; an id collision still surfaces as a unique
		// violation and means the same event, so stay idempotent.
		if isDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent retrieves the most recent events across all wallets.
func (s *EventHistoryStore) Recent(ctx context.Context, limit int) ([]domain.AirdropEvent, error) {
	query := selectEvents + ` ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	s.recordQuery("recent", start, err)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentByWallet retrieves the most recent events for one wallet.
func (s *EventHistoryStore) RecentByWallet(ctx context.Context, wallet string, limit int) ([]domain.AirdropEvent, error) {
	query := selectEvents + ` WHERE wallet = $1 ORDER BY detected_at DESC`
	args := []any{wallet}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	s.recordQuery("recent_by_wallet", start, err)
	if err != nil {
		return nil, fmt.Errorf("query events by wallet: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Clear removes all stored events.
func (s *EventHistoryStore) Clear(ctx context.Context) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, `DELETE FROM event_history`)
	s.recordQuery("clear", start, err)
	if err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT id, wallet, mint, old_amount, new_amount,
	       symbol, name, logo_url, website_url, external_id, tags, verified,
	       risk_level, risk_score, risk_reasons, detected_at
	FROM event_history
`

// pgRows is the subset of pgx.Rows used by scanEvents.
type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows pgRows) ([]domain.AirdropEvent, error) {
	var events []domain.AirdropEvent

	for rows.Next() {
		var e domain.AirdropEvent
		var riskLevel, oldAmount, newAmount string

		err := rows.Scan(
			&e.ID, &e.Wallet, &e.Mint, &oldAmount, &newAmount,
			&e.Metadata.Symbol, &e.Metadata.Name, &e.Metadata.LogoURL,
			&e.Metadata.WebsiteURL, &e.Metadata.ExternalID, &e.Metadata.Tags,
			&e.Metadata.Verified,
			&riskLevel, &e.Risk.Score, &e.Risk.Reasons, &e.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.OldAmount, err = decimal.NewFromString(oldAmount)
		if err != nil {
			return nil, fmt.Errorf("parse old amount: %w", err)
		}
		e.NewAmount, err = decimal.NewFromString(newAmount)
		if err != nil {
			return nil, fmt.Errorf("parse new amount: %w", err)
		}

		e.Metadata.Mint = e.Mint
		e.Risk.Level = domain.RiskLevel(riskLevel)
		if len(e.Metadata.Tags) == 0 {
			e.Metadata.Tags = nil
		}
		if len(e.Risk.Reasons) == 0 {
			e.Risk.Reasons = nil
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
