package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
)

func testEvent(id, wallet, mint string, detectedAt time.Time) domain.AirdropEvent {
	return domain.AirdropEvent{
		ID:        id,
		Wallet:    wallet,
		Mint:      mint,
		OldAmount: decimal.Zero,
		NewAmount: decimal.RequireFromString("100.5"),
		Metadata: domain.TokenMetadata{
			Mint:     mint,
			Symbol:   "TEST",
			Name:     "Test Token",
			Tags:     []string{"community"},
			Verified: true,
		},
		Risk: domain.ClaimRiskAssessment{
			Level:   domain.RiskLow,
			Score:   0,
			Reasons: []string{"No obvious risk indicators detected."},
		},
		DetectedAt: detectedAt,
	}
}

func TestEventHistoryStore_AppendAndRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	metrics := observability.NewMetrics("pg_history_test")
	store := NewEventHistoryStore(pool, WithMetrics(metrics))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.Append(ctx, testEvent("ev1", "wallet1", "mint1", base)))
	require.NoError(t, store.Append(ctx, testEvent("ev2", "wallet1", "mint2", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testEvent("ev3", "wallet2", "mint3", base.Add(2*time.Minute))))

	events, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.DBQueryDuration), "append and recent durations observed")
	assert.Equal(t, "ev3", events[0].ID, "newest first")

	got := events[2]
	assert.Equal(t, "wallet1", got.Wallet)
	assert.Equal(t, "mint1", got.Mint)
	assert.True(t, got.NewAmount.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, "Test Token", got.Metadata.Name)
	assert.Equal(t, []string{"community"}, got.Metadata.Tags)
	assert.True(t, got.Metadata.Verified)
	assert.Equal(t, domain.RiskLow, got.Risk.Level)
	assert.Equal(t, []string{"No obvious risk indicators detected."}, got.Risk.Reasons)
	assert.True(t, got.DetectedAt.Equal(base))

	limited, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "ev3", limited[0].ID)
}

func TestEventHistoryStore_DuplicateIgnored(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventHistoryStore(pool)
	ctx := context.Background()
	detectedAt := time.Now().UTC().Truncate(time.Millisecond)

	first := testEvent("ev1", "wallet1", "mint1", detectedAt)
	dup := testEvent("ev2", "wallet1", "mint1", detectedAt)

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, dup))

	events, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev1", events[0].ID, "first append wins")

	// An id collision surfaces as a primary key violation rather than the
	// dedup constraint; Append stays idempotent either way.
	idClash := testEvent("ev1", "wallet1", "mint-other", detectedAt)
	require.NoError(t, store.Append(ctx, idClash))

	events, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestEventHistoryStore_RecentByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventHistoryStore(pool)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.Append(ctx, testEvent("ev1", "wallet1", "mint1", base)))
	require.NoError(t, store.Append(ctx, testEvent("ev2", "wallet2", "mint2", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testEvent("ev3", "wallet1", "mint3", base.Add(2*time.Minute))))

	events, err := store.RecentByWallet(ctx, "wallet1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev3", events[0].ID)
	assert.Equal(t, "ev1", events[1].ID)
}

func TestEventHistoryStore_Clear(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testEvent("ev1", "wallet1", "mint1", time.Now().UTC())))
	require.NoError(t, store.Clear(ctx))

	events, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventHistoryStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventHistoryStore(pool)
	err := store.Append(context.Background(), domain.AirdropEvent{Mint: "mint1"})
	assert.Error(t, err)
}
