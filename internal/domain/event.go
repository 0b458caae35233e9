package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AirdropEvent is a detected positive balance change for one token.
// Immutable after creation; Delta is always > 0 by construction since
// events are only created for increases.
type AirdropEvent struct {
	ID         string              `json:"id"`
	Wallet     string              `json:"wallet"`
	Mint       string              `json:"mint"`
	OldAmount  decimal.Decimal     `json:"oldAmount"`
	NewAmount  decimal.Decimal     `json:"newAmount"`
	Metadata   TokenMetadata       `json:"metadata"`
	Risk       ClaimRiskAssessment `json:"risk"`
	DetectedAt time.Time           `json:"detectedAt"`
}

// Delta returns the balance increase that produced this event.
func (e AirdropEvent) Delta() decimal.Decimal {
	return e.NewAmount.Sub(e.OldAmount)
}
