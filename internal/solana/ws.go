package solana

import "context"

// ActivityStream delivers on-chain activity notifications for watched
// wallets, used to trigger checks between polling ticks.
type ActivityStream interface {
	// SubscribeWallet subscribes to transaction logs mentioning the wallet.
	SubscribeWallet(ctx context.Context, wallet string) (<-chan ActivityNotification, error)

	// Close closes the underlying connection.
	Close() error
}

// ActivityNotification is one observed transaction touching a watched wallet.
type ActivityNotification struct {
	Wallet    string
	Signature string
	Slot      int64
	Err       interface{} // non-nil when the transaction failed on-chain
}
