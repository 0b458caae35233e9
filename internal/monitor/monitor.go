// Package monitor implements the airdrop check cycle: fetch current token
// balances, diff against the stored snapshot, enrich every increase with
// metadata and a claim risk assessment, and persist the new snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
	"airdrop-sentinel/internal/risk"
	"airdrop-sentinel/internal/solana"
	"airdrop-sentinel/internal/storage"
)

// DefaultResolveConcurrency bounds parallel metadata lookups per check.
const DefaultResolveConcurrency = 8

// MetadataResolver resolves a mint to metadata. Resolution never fails.
type MetadataResolver interface {
	Metadata(ctx context.Context, mint string) domain.TokenMetadata
}

// Monitor runs airdrop checks. Checks for the same wallet are serialized
// so the snapshot read always happens before the corresponding write.
type Monitor struct {
	fetcher   solana.BalanceFetcher
	resolver  MetadataResolver
	scorer    *risk.Scorer
	snapshots storage.SnapshotStore
	history   storage.EventHistoryStore
	checks    storage.CheckTimeseriesStore
	logger    *slog.Logger
	metrics   *observability.Metrics

	resolveConcurrency int

	mu          sync.Mutex
	walletLocks map[string]*sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHistory wires an event history store; detected events are appended
// to it best-effort after each check.
func WithHistory(history storage.EventHistoryStore) Option {
	return func(m *Monitor) {
		m.history = history
	}
}

// WithCheckTimeseries wires a check-run timeseries store; one record is
// written per check, including failed ones.
func WithCheckTimeseries(checks storage.CheckTimeseriesStore) Option {
	return func(m *Monitor) {
		m.checks = checks
	}
}

// WithMetrics wires prometheus metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// WithResolveConcurrency bounds parallel metadata lookups per check.
func WithResolveConcurrency(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.resolveConcurrency = n
		}
	}
}

// New creates a Monitor.
func New(
	fetcher solana.BalanceFetcher,
	resolver MetadataResolver,
	scorer *risk.Scorer,
	snapshots storage.SnapshotStore,
	logger *slog.Logger,
	opts ...Option,
) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		fetcher:            fetcher,
		resolver:           resolver,
		scorer:             scorer,
		snapshots:          snapshots,
		logger:             logger,
		resolveConcurrency: DefaultResolveConcurrency,
		walletLocks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// increase is one positive balance delta found during a check.
type increase struct {
	mint      string
	oldAmount decimal.Decimal
	newAmount decimal.Decimal
}

// CheckForAirdrops fetches current balances for a wallet, diffs them
// against the prior snapshot and returns one event per balance increase,
// sorted by descending delta. The snapshot is replaced exactly once on
// success and never touched when the fetch fails.
func (m *Monitor) CheckForAirdrops(ctx context.Context, wallet string) ([]domain.AirdropEvent, error) {
	lock := m.walletLock(wallet)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	balances, err := m.fetcher.FetchTokenBalances(ctx, wallet)
	if err != nil {
		m.logger.Error("balance fetch failed", "wallet", wallet, "error", err)
		m.recordCheck(wallet, start, 0, nil, string(solana.KindOf(err)))
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.BalancesFetched.Add(float64(len(balances)))
	}

	prior, err := m.snapshots.Load(ctx, wallet)
	if err != nil {
		// A broken snapshot read behaves like a missing snapshot; the
		// check must not fail over storage.
		m.logger.Warn("snapshot load failed, using empty baseline", "wallet", wallet, "error", err)
		prior = map[string]decimal.Decimal{}
	}

	if len(prior) == 0 && len(balances) > 0 {
		m.logger.Info("no prior snapshot, creating baseline", "wallet", wallet, "balances", len(balances))
	}

	// First occurrence per mint wins; a wallet can hold several token
	// accounts for the same mint.
	current := make(map[string]decimal.Decimal, len(balances))
	var increases []increase
	for _, b := range balances {
		if _, seen := current[b.Mint]; seen {
			continue
		}
		current[b.Mint] = b.Amount

		old := prior[b.Mint] // zero value when absent
		if b.Amount.GreaterThan(old) {
			increases = append(increases, increase{mint: b.Mint, oldAmount: old, newAmount: b.Amount})
		}
	}

	detectedAt := time.Now().UTC()
	events := make([]domain.AirdropEvent, len(increases))

	// Metadata lookups are independent and cached; resolve in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.resolveConcurrency)
	for i, inc := range increases {
		g.Go(func() error {
			meta := m.resolver.Metadata(gctx, inc.mint)
			delta := inc.newAmount.Sub(inc.oldAmount)
			events[i] = domain.AirdropEvent{
				ID:         uuid.NewString(),
				Wallet:     wallet,
				Mint:       inc.mint,
				OldAmount:  inc.oldAmount,
				NewAmount:  inc.newAmount,
				Metadata:   meta,
				Risk:       m.scorer.Evaluate(delta, meta),
				DetectedAt: detectedAt,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := m.snapshots.Save(ctx, wallet, current); err != nil {
		m.recordCheck(wallet, start, len(balances), nil, "snapshot_write")
		return nil, fmt.Errorf("save snapshot for %s: %w", wallet, err)
	}
	if m.metrics != nil {
		m.metrics.SnapshotWrites.Inc()
	}

	// Largest increase first; ties keep fetch order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Delta().GreaterThan(events[j].Delta())
	})

	m.appendHistory(ctx, events)
	m.recordCheck(wallet, start, len(balances), events, "")

	if len(events) > 0 {
		m.logger.Info("airdrops detected", "wallet", wallet, "events", len(events))
	}
	return events, nil
}

// walletLock returns the mutex serializing checks for one wallet.
func (m *Monitor) walletLock(wallet string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.walletLocks[wallet]
	if !ok {
		lock = &sync.Mutex{}
		m.walletLocks[wallet] = lock
	}
	return lock
}

// appendHistory persists detected events best-effort.
func (m *Monitor) appendHistory(ctx context.Context, events []domain.AirdropEvent) {
	if m.history == nil {
		return
	}
	for _, e := range events {
		if err := m.history.Append(ctx, e); err != nil && !errors.Is(err, storage.ErrInvalidInput) {
			m.logger.Warn("history append failed", "wallet", e.Wallet, "mint", e.Mint, "error", err)
			continue
		}
		if m.metrics != nil {
			m.metrics.HistoryAppends.Inc()
		}
	}
}

// recordCheck writes one check-run record and updates metrics.
func (m *Monitor) recordCheck(wallet string, start time.Time, balanceCount int, events []domain.AirdropEvent, errorKind string) {
	duration := time.Since(start)

	if m.metrics != nil {
		outcome := "ok"
		if errorKind != "" {
			outcome = errorKind
		}
		m.metrics.RecordCheck(outcome, duration.Seconds())
		for _, e := range events {
			m.metrics.RecordEvent(e.Risk.Level.String())
		}
		if errorKind == "" {
			m.metrics.LastSuccessfulCheck.SetToCurrentTime()
		}
	}

	if m.checks == nil {
		return
	}

	maxScore := 0
	for _, e := range events {
		if e.Risk.Score > maxScore {
			maxScore = e.Risk.Score
		}
	}
	record := &domain.CheckRecord{
		Wallet:       wallet,
		TimestampMs:  start.UnixMilli(),
		BalanceCount: balanceCount,
		EventCount:   len(events),
		MaxRiskScore: maxScore,
		DurationMs:   duration.Milliseconds(),
		ErrorKind:    errorKind,
	}

	// Detached context: the check row should land even when the caller's
	// context was canceled mid-check.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.checks.InsertBulk(ctx, []*domain.CheckRecord{record}); err != nil {
		m.logger.Warn("check record insert failed", "wallet", wallet, "error", err)
	}
}
