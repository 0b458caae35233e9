package domain

import "fmt"

// UnknownTokenName is the placeholder name used when no metadata source
// has data for a mint. The risk scorer keys off this value.
const UnknownTokenName = "Unknown Token"

// TokenMetadata describes a token as merged from metadata sources.
// Immutable once resolved for a given mint within a process lifetime.
type TokenMetadata struct {
	Mint       string   `json:"mint"`
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	LogoURL    string   `json:"logoUrl,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	WebsiteURL string   `json:"websiteUrl,omitempty"`
	ExternalID string   `json:"externalId,omitempty"`
	Verified   bool     `json:"verified"`
}

// HasTag reports whether the metadata carries the given (lowercase) tag.
func (m TokenMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FallbackMetadata returns the placeholder metadata for a mint no source
// could describe.
func FallbackMetadata(mint string) TokenMetadata {
	return TokenMetadata{
		Mint:   mint,
		Symbol: ShortMint(mint),
		Name:   UnknownTokenName,
	}
}

// ShortMint truncates a mint address for display: "ABCD...WXYZ".
// Mints of 10 characters or fewer are returned unchanged.
func ShortMint(mint string) string {
	if len(mint) <= 10 {
		return mint
	}
	return fmt.Sprintf("%s...%s", mint[:4], mint[len(mint)-4:])
}
