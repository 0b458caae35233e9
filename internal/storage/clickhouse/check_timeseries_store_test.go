package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-sentinel/internal/domain"
)

func checkRecord(wallet string, tsMs int64, events int) *domain.CheckRecord {
	return &domain.CheckRecord{
		Wallet:       wallet,
		TimestampMs:  tsMs,
		BalanceCount: 12,
		EventCount:   events,
		MaxRiskScore: 65,
		DurationMs:   340,
	}
}

func TestCheckTimeseriesStore_InsertAndGetByWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCheckTimeseriesStore(conn)
	ctx := context.Background()

	records := []*domain.CheckRecord{
		checkRecord("wallet1", 1704067200000, 0),
		checkRecord("wallet1", 1704067260000, 2),
		checkRecord("wallet2", 1704067320000, 1),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByWallet(ctx, "wallet1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1704067200000), got[0].TimestampMs, "timestamp ASC order")
	assert.Equal(t, 0, got[0].EventCount)
	assert.Equal(t, 2, got[1].EventCount)
	assert.Equal(t, 12, got[0].BalanceCount)
	assert.Equal(t, 65, got[0].MaxRiskScore)
	assert.Equal(t, int64(340), got[0].DurationMs)
	assert.Empty(t, got[0].ErrorKind)
}

func TestCheckTimeseriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCheckTimeseriesStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.CheckRecord{
		checkRecord("wallet1", 1000, 0),
		checkRecord("wallet1", 2000, 1),
		checkRecord("wallet1", 3000, 0),
	}))

	got, err := store.GetByTimeRange(ctx, "wallet1", 1500, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}

func TestCheckTimeseriesStore_ErrorKindRecorded(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCheckTimeseriesStore(conn)
	ctx := context.Background()

	rec := checkRecord("wallet1", 5000, 0)
	rec.ErrorKind = "timeout"
	require.NoError(t, store.InsertBulk(ctx, []*domain.CheckRecord{rec}))

	got, err := store.GetByWallet(ctx, "wallet1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "timeout", got[0].ErrorKind)
}

func TestCheckTimeseriesStore_InsertBulkEmpty(t *testing.T) {
	store := NewCheckTimeseriesStore(nil)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
