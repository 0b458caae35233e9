package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/risk"
	"airdrop-sentinel/internal/solana"
	"airdrop-sentinel/internal/storage/memory"
)

// fakeFetcher returns a scripted sequence of balance sets.
type fakeFetcher struct {
	mu      sync.Mutex
	results [][]domain.TokenBalance
	err     error
	calls   int
}

func (f *fakeFetcher) FetchTokenBalances(_ context.Context, _ string) ([]domain.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result, nil
}

// fakeResolver serves canned metadata and falls back to the placeholder.
type fakeResolver struct {
	mu    sync.Mutex
	metas map[string]domain.TokenMetadata
	calls int
}

func (r *fakeResolver) Metadata(_ context.Context, mint string) domain.TokenMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if meta, ok := r.metas[mint]; ok {
		return meta
	}
	return domain.FallbackMetadata(mint)
}

func balance(mint, amount string) domain.TokenBalance {
	return domain.TokenBalance{Mint: mint, Amount: decimal.RequireFromString(amount)}
}

func newTestMonitor(fetcher *fakeFetcher, resolver *fakeResolver, opts ...Option) (*Monitor, *memory.SnapshotStore) {
	snapshots := memory.NewSnapshotStore()
	m := New(fetcher, resolver, risk.NewScorer(), snapshots, nil, opts...)
	return m, snapshots
}

func TestCheckForAirdropsDetectsIncrease(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("m1", "3")}}}
	resolver := &fakeResolver{}
	m, snapshots := newTestMonitor(fetcher, resolver)
	ctx := context.Background()

	snapshots.Save(ctx, "wallet1", map[string]decimal.Decimal{"m1": decimal.NewFromInt(1)})

	events, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	e := events[0]
	if e.Mint != "m1" {
		t.Errorf("unexpected mint %q", e.Mint)
	}
	if !e.Delta().Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected delta 2, got %s", e.Delta())
	}
	if e.ID == "" || e.Wallet != "wallet1" || e.DetectedAt.IsZero() {
		t.Errorf("event identity incomplete: %+v", e)
	}
}

func TestCheckForAirdropsIdempotentOnceConverged(t *testing.T) {
	balances := []domain.TokenBalance{balance("m1", "3"), balance("m2", "7")}
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{balances, balances}}
	m, _ := newTestMonitor(fetcher, &fakeResolver{})
	ctx := context.Background()

	first, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	// First run has no baseline: every held balance surfaces as an event.
	if len(first) != 2 {
		t.Fatalf("expected first-run events for all balances, got %d", len(first))
	}

	second, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no events once converged, got %d", len(second))
	}
}

func TestCheckForAirdropsNoEventOnDecrease(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("m1", "1")}}}
	m, snapshots := newTestMonitor(fetcher, &fakeResolver{})
	ctx := context.Background()

	snapshots.Save(ctx, "wallet1", map[string]decimal.Decimal{
		"m1": decimal.NewFromInt(5),
		"m2": decimal.NewFromInt(1),
	})

	events, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for decreases or disappearances, got %d", len(events))
	}

	// The snapshot still converges to the fetched set.
	current, _ := snapshots.Load(ctx, "wallet1")
	if len(current) != 1 || !current["m1"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("snapshot must reflect the latest fetch, got %v", current)
	}
}

func TestCheckForAirdropsSortedByDescendingDelta(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{
		balance("small", "0.5"),
		balance("tieA", "2"),
		balance("big", "100"),
		balance("tieB", "2"),
	}}}
	m, _ := newTestMonitor(fetcher, &fakeResolver{})

	events, err := m.CheckForAirdrops(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	order := []string{events[0].Mint, events[1].Mint, events[2].Mint, events[3].Mint}
	want := []string{"big", "tieA", "tieB", "small"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestCheckForAirdropsFetchErrorLeavesSnapshotUntouched(t *testing.T) {
	netErr := &solana.NetworkError{Kind: solana.ErrKindTimeout, Message: "deadline exceeded"}
	fetcher := &fakeFetcher{err: netErr}
	m, snapshots := newTestMonitor(fetcher, &fakeResolver{})
	ctx := context.Background()

	snapshots.Save(ctx, "wallet1", map[string]decimal.Decimal{"m1": decimal.NewFromInt(1)})
	before, _ := snapshots.UpdatedAt(ctx, "wallet1")

	events, err := m.CheckForAirdrops(ctx, "wallet1")
	if events != nil {
		t.Error("no event list may be produced on fetch failure")
	}

	var gotErr *solana.NetworkError
	if !errors.As(err, &gotErr) || gotErr.Kind != solana.ErrKindTimeout {
		t.Fatalf("expected timeout NetworkError, got %v", err)
	}

	after, _ := snapshots.UpdatedAt(ctx, "wallet1")
	if !after.Equal(before) {
		t.Error("snapshot must not be written on fetch failure")
	}
}

func TestCheckForAirdropsDuplicateMintFirstWins(t *testing.T) {
	// Two token accounts for the same mint: only the first counts.
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{
		balance("m1", "3"),
		balance("m1", "9"),
	}}}
	m, snapshots := newTestMonitor(fetcher, &fakeResolver{})
	ctx := context.Background()

	events, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].NewAmount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("first occurrence must win, got %s", events[0].NewAmount)
	}

	current, _ := snapshots.Load(ctx, "wallet1")
	if !current["m1"].Equal(decimal.NewFromInt(3)) {
		t.Errorf("snapshot must store the first occurrence, got %s", current["m1"])
	}
}

func TestCheckForAirdropsScoresScamDust(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("scam", "0.0001")}}}
	resolver := &fakeResolver{metas: map[string]domain.TokenMetadata{
		"scam": {Mint: "scam", Symbol: "FREECLAIM", Name: domain.UnknownTokenName},
	}}
	m, _ := newTestMonitor(fetcher, resolver)

	events, err := m.CheckForAirdrops(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Risk.Level != domain.RiskHigh {
		t.Errorf("expected high risk, got %s (score %d)", events[0].Risk.Level, events[0].Risk.Score)
	}
}

func TestCheckForAirdropsScoresTrustedTokenLow(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("usdc", "10")}}}
	resolver := &fakeResolver{metas: map[string]domain.TokenMetadata{
		"usdc": {
			Mint: "usdc", Symbol: "USDC", Name: "USD Coin",
			LogoURL: "https://example.com/usdc.png", Verified: true,
		},
	}}
	m, _ := newTestMonitor(fetcher, resolver)

	events, err := m.CheckForAirdrops(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Risk.Level != domain.RiskLow {
		t.Errorf("expected low risk, got %s (score %d)", events[0].Risk.Level, events[0].Risk.Score)
	}
}

func TestCheckForAirdropsAppendsHistory(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("m1", "3")}}}
	history := memory.NewEventHistoryStore()
	m, _ := newTestMonitor(fetcher, &fakeResolver{}, WithHistory(history))
	ctx := context.Background()

	events, err := m.CheckForAirdrops(ctx, "wallet1")
	if err != nil {
		t.Fatalf("CheckForAirdrops failed: %v", err)
	}

	stored, _ := history.Recent(ctx, 0)
	if len(stored) != len(events) {
		t.Fatalf("expected %d history entries, got %d", len(events), len(stored))
	}
	if stored[0].ID != events[0].ID {
		t.Errorf("history entry mismatch: %s vs %s", stored[0].ID, events[0].ID)
	}
}

func TestCheckForAirdropsSerializedPerWallet(t *testing.T) {
	fetcher := &fakeFetcher{results: [][]domain.TokenBalance{{balance("m1", "1")}}}
	m, _ := newTestMonitor(fetcher, &fakeResolver{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.CheckForAirdrops(ctx, "wallet1"); err != nil {
				t.Errorf("concurrent check failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
