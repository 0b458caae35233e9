package metadata

import (
	"sort"
	"strings"

	"airdrop-sentinel/internal/domain"
)

// Merge combines two metadata records for the same mint. Field precedence:
// symbol/name first non-empty wins, URL fields first non-empty wins, tags
// are unioned (deduplicated, sorted), verified is a logical OR.
func Merge(primary, secondary domain.TokenMetadata) domain.TokenMetadata {
	merged := domain.TokenMetadata{
		Mint:       primary.Mint,
		Symbol:     firstNonEmpty(primary.Symbol, secondary.Symbol),
		Name:       firstNonEmpty(primary.Name, secondary.Name),
		LogoURL:    firstNonEmpty(primary.LogoURL, secondary.LogoURL),
		WebsiteURL: firstNonEmpty(primary.WebsiteURL, secondary.WebsiteURL),
		ExternalID: firstNonEmpty(primary.ExternalID, secondary.ExternalID),
		Tags:       unionTags(primary.Tags, secondary.Tags),
		Verified:   primary.Verified || secondary.Verified,
	}
	if merged.Mint == "" {
		merged.Mint = secondary.Mint
	}
	return merged
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// unionTags deduplicates and sorts the union of both tag sets.
func unionTags(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(a)+len(b))
	for _, t := range a {
		seen[t] = struct{}{}
	}
	for _, t := range b {
		seen[t] = struct{}{}
	}

	union := make([]string, 0, len(seen))
	for t := range seen {
		union = append(union, t)
	}
	sort.Strings(union)
	return union
}

// normalizeTags lowercases, trims and drops empty tags.
func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
