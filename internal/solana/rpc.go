package solana

import (
	"context"

	"airdrop-sentinel/internal/domain"
)

// BalanceFetcher fetches the current full set of token balances for a
// wallet. Failures are always *NetworkError.
type BalanceFetcher interface {
	// FetchTokenBalances returns all token balances owned by the address,
	// amounts normalized to human units. The owner string is passed through
	// as-is; address validation is a caller concern.
	FetchTokenBalances(ctx context.Context, owner string) ([]domain.TokenBalance, error)
}
