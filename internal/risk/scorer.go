// Package risk scores the claim risk of interacting with a newly received
// token. Scoring is additive and deterministic: each triggered signal adds a
// fixed weight and a human-readable reason.
package risk

import (
	"strings"

	"github.com/shopspring/decimal"

	"airdrop-sentinel/internal/domain"
)

// Signal weights.
const (
	weightUnknownMetadata = 30
	weightUnverified      = 15
	weightNoLogo          = 8
	weightScamKeyword     = 35
	weightDustAmount      = 20
	weightLongSymbol      = 10
	weightNFTTag          = 7
)

// Level thresholds and the score cap.
const (
	mediumThreshold = 30
	highThreshold   = 65
	maxScore        = 100
)

// Reason strings are part of the user-facing contract; do not reword.
const (
	ReasonUnknownMetadata = "Token metadata not found in trusted list."
	ReasonUnverified      = "Token is not marked verified in aggregated metadata sources."
	ReasonNoLogo          = "Token has no known logo; manually verify mint before interacting."
	ReasonScamKeyword     = "Token name/symbol contains common scam keywords."
	ReasonDustAmount      = "Tiny balance increase; dust airdrops can be phishing bait."
	ReasonLongSymbol      = "Unusually long token symbol."
	ReasonNFTTag          = "Token is tagged as NFT/collectible; claim prompts may differ from fungible token drops."
	ReasonNoIndicators    = "No obvious risk indicators detected."
)

// scamKeywords are substrings commonly seen in phishing token names.
var scamKeywords = []string{
	"claim", "airdrop", "free", "bonus", "gift", "reward", "visit", "http", "www",
}

// dustThreshold is the delta at or below which an increase counts as dust.
var dustThreshold = decimal.RequireFromString("0.001")

// Scorer evaluates claim risk. Pure, no I/O, never fails.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Evaluate maps a balance increase and its token metadata to a risk
// assessment. The reasons list preserves signal evaluation order and is
// never empty.
func (s *Scorer) Evaluate(delta decimal.Decimal, meta domain.TokenMetadata) domain.ClaimRiskAssessment {
	score := 0
	var reasons []string

	symbolLower := strings.ToLower(meta.Symbol)
	nameLower := strings.ToLower(meta.Name)

	if meta.Name == domain.UnknownTokenName {
		score += weightUnknownMetadata
		reasons = append(reasons, ReasonUnknownMetadata)
	}

	if !meta.Verified {
		score += weightUnverified
		reasons = append(reasons, ReasonUnverified)
	}

	if meta.LogoURL == "" {
		score += weightNoLogo
		reasons = append(reasons, ReasonNoLogo)
	}

	if containsScamKeyword(symbolLower) || containsScamKeyword(nameLower) {
		score += weightScamKeyword
		reasons = append(reasons, ReasonScamKeyword)
	}

	if delta.LessThanOrEqual(dustThreshold) {
		score += weightDustAmount
		reasons = append(reasons, ReasonDustAmount)
	}

	if len(meta.Symbol) > 10 {
		score += weightLongSymbol
		reasons = append(reasons, ReasonLongSymbol)
	}

	if meta.HasTag("nft") || meta.HasTag("collectible") {
		score += weightNFTTag
		reasons = append(reasons, ReasonNFTTag)
	}

	var level domain.RiskLevel
	switch {
	case score < mediumThreshold:
		level = domain.RiskLow
		if len(reasons) == 0 {
			reasons = []string{ReasonNoIndicators}
		}
	case score < highThreshold:
		level = domain.RiskMedium
	default:
		level = domain.RiskHigh
	}

	if score > maxScore {
		score = maxScore
	}

	return domain.ClaimRiskAssessment{
		Level:   level,
		Score:   score,
		Reasons: reasons,
	}
}

func containsScamKeyword(s string) bool {
	for _, kw := range scamKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
