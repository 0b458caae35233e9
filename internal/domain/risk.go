package domain

// RiskLevel buckets a claim risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// String returns the string representation of RiskLevel.
func (l RiskLevel) String() string {
	return string(l)
}

// IsValid checks if the level is a valid value.
func (l RiskLevel) IsValid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// ClaimRiskAssessment is the scored claim risk for one balance increase.
// It is a value object, copied into the AirdropEvent at creation time and
// never persisted on its own.
type ClaimRiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Score   int       `json:"score"` // clamped to [0, 100]
	Reasons []string  `json:"reasons"`
}
