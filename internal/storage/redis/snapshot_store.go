// Package redis provides Redis-backed store implementations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/storage"
)

const (
	snapshotKeyPrefix  = "snapshot:"
	updatedAtKeyPrefix = "snapshot_updated_at:"
)

// SnapshotStore is a Redis-backed implementation of storage.SnapshotStore.
// Snapshots survive process restarts, so a redeploy does not re-announce
// every held token as an airdrop.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a Redis-backed snapshot store. A zero ttl
// keeps snapshots forever.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Load retrieves the balance snapshot for a wallet. A missing or corrupt
// snapshot is reported as empty.
func (s *SnapshotStore) Load(ctx context.Context, wallet string) (map[string]decimal.Decimal, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	raw, err := s.client.Get(ctx, snapshotKeyPrefix+wallet).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]decimal.Decimal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var encoded map[string]string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		// A corrupt snapshot behaves like a missing one.
		return map[string]decimal.Decimal{}, nil
	}

	balances := make(map[string]decimal.Decimal, len(encoded))
	for mint, amount := range encoded {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		balances[mint] = d
	}
	return balances, nil
}

// Save replaces the balance snapshot for a wallet.
func (s *SnapshotStore) Save(ctx context.Context, wallet string, balances map[string]decimal.Decimal) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	encoded := make(map[string]string, len(balances))
	for mint, amount := range balances {
		encoded[mint] = amount.String()
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	now := time.Now().UTC()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, snapshotKeyPrefix+wallet, raw, s.ttl)
	pipe.Set(ctx, updatedAtKeyPrefix+wallet, now.Format(time.RFC3339Nano), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// UpdatedAt returns when the wallet's snapshot was last saved.
func (s *SnapshotStore) UpdatedAt(ctx context.Context, wallet string) (time.Time, error) {
	raw, err := s.client.Get(ctx, updatedAtKeyPrefix+wallet).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load snapshot timestamp: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, storage.ErrNotFound
	}
	return ts, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
