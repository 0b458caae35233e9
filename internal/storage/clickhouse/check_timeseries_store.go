package clickhouse

import (
	"context"
	"fmt"
	"time"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
	"airdrop-sentinel/internal/storage"
)

// CheckTimeseriesStore implements storage.CheckTimeseriesStore using ClickHouse.
type CheckTimeseriesStore struct {
	conn    *Conn
	metrics *observability.Metrics
}

// CheckTimeseriesStoreOption configures CheckTimeseriesStore.
type CheckTimeseriesStoreOption func(*CheckTimeseriesStore)

// WithMetrics wires prometheus metrics into the store.
func WithMetrics(m *observability.Metrics) CheckTimeseriesStoreOption {
	return func(s *CheckTimeseriesStore) {
		s.metrics = m
	}
}

// NewCheckTimeseriesStore creates a new CheckTimeseriesStore.
func NewCheckTimeseriesStore(conn *Conn, opts ...CheckTimeseriesStoreOption) *CheckTimeseriesStore {
	s := &CheckTimeseriesStore{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckTimeseriesStore) recordQuery(operation string, began time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBQuery("clickhouse", operation, time.Since(began).Seconds(), err)
}

// Compile-time interface check.
var _ storage.CheckTimeseriesStore = (*CheckTimeseriesStore)(nil)

// InsertBulk adds multiple check records.
func (s *CheckTimeseriesStore) InsertBulk(ctx context.Context, records []*domain.CheckRecord) error {
	if len(records) == 0 {
		return nil
	}

	began := time.Now()
	err := s.insertBulk(ctx, records)
	s.recordQuery("insert_bulk", began, err)
	return err
}

func (s *CheckTimeseriesStore) insertBulk(ctx context.Context, records []*domain.CheckRecord) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO check_runs (
			wallet, timestamp_ms, balance_count, event_count,
			max_risk_score, duration_ms, error_kind
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.Wallet, uint64(r.TimestampMs), uint32(r.BalanceCount),
			uint32(r.EventCount), uint8(r.MaxRiskScore), uint64(r.DurationMs),
			r.ErrorKind,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet retrieves all records for a wallet, ordered by timestamp ASC.
func (s *CheckTimeseriesStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.CheckRecord, error) {
	query := `
		SELECT wallet, timestamp_ms, balance_count, event_count,
		       max_risk_score, duration_ms, error_kind
		FROM check_runs
		WHERE wallet = ?
		ORDER BY timestamp_ms ASC
	`

	began := time.Now()
	rows, err := s.conn.Query(ctx, query, wallet)
	s.recordQuery("get_by_wallet", began, err)
	if err != nil {
		return nil, fmt.Errorf("query by wallet: %w", err)
	}
	defer rows.Close()

	return scanCheckRecords(rows)
}

// GetByTimeRange retrieves records for a wallet within [start, end] (inclusive).
func (s *CheckTimeseriesStore) GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.CheckRecord, error) {
	query := `
		SELECT wallet, timestamp_ms, balance_count, event_count,
		       max_risk_score, duration_ms, error_kind
		FROM check_runs
		WHERE wallet = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	began := time.Now()
	rows, err := s.conn.Query(ctx, query, wallet, uint64(start), uint64(end))
	s.recordQuery("get_by_time_range", began, err)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanCheckRecords(rows)
}

// chRows is the subset of driver.Rows used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanCheckRecords scans multiple rows.
func scanCheckRecords(rows chRows) ([]*domain.CheckRecord, error) {
	var records []*domain.CheckRecord

	for rows.Next() {
		var r domain.CheckRecord
		var timestampMs, durationMs uint64
		var balanceCount, eventCount uint32
		var maxRiskScore uint8

		err := rows.Scan(
			&r.Wallet, &timestampMs, &balanceCount, &eventCount,
			&maxRiskScore, &durationMs, &r.ErrorKind,
		)
		if err != nil {
			return nil, fmt.Errorf("scan check run row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		r.BalanceCount = int(balanceCount)
		r.EventCount = int(eventCount)
		r.MaxRiskScore = int(maxRiskScore)
		r.DurationMs = int64(durationMs)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check run rows: %w", err)
	}

	return records, nil
}
