package domain

import "github.com/shopspring/decimal"

// TokenBalance is the observed amount of one token held by a wallet.
// Amount is normalized to human units (raw amount / 10^decimals) at fetch
// time, so downstream code never deals with raw integer amounts.
type TokenBalance struct {
	Mint   string          `json:"mint"`
	Amount decimal.Decimal `json:"amount"`
}
