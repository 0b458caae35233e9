package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default source endpoints.
const (
	DefaultJupiterListURL     = "https://token.jup.ag/strict"
	DefaultSolanaTokenListURL = "https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/src/tokens/solana.tokenlist.json"
	DefaultSolscanMetaURL     = "https://public-api.solscan.io/token/meta"
	DefaultDexScreenerURL     = "https://api.dexscreener.com/latest/dex/tokens"
)

// fetch retry parameters, matching the RPC fetch policy.
const (
	sourceMaxAttempts = 3
	sourceRetryDelay  = 300 * time.Millisecond
	sourceMaxDelay    = 2 * time.Second
)

// jupiterEntry is one token in the Jupiter strict list. The Solana token
// list uses the same entry shape nested under "tokens".
type jupiterEntry struct {
	Address    string           `json:"address"`
	Symbol     string           `json:"symbol"`
	Name       string           `json:"name"`
	LogoURI    string           `json:"logoURI"`
	Tags       []string         `json:"tags"`
	Extensions *tokenExtensions `json:"extensions"`
}

type tokenExtensions struct {
	Website     string `json:"website"`
	CoingeckoID string `json:"coingeckoId"`
}

type solanaTokenListResponse struct {
	Tokens []jupiterEntry `json:"tokens"`
}

// solscanMetaResponse is the per-mint Solscan token meta shape.
type solscanMetaResponse struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Website     string   `json:"website"`
	Tags        []string `json:"tags"`
	Verified    bool     `json:"verified"`
	CoingeckoID string   `json:"coingeckoId"`
}

// dexScreenerResponse is the per-mint DexScreener pairs shape.
type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	BaseToken  dexScreenerToken     `json:"baseToken"`
	QuoteToken dexScreenerToken     `json:"quoteToken"`
	Labels     []string             `json:"labels"`
	Info       *dexScreenerPairInfo `json:"info"`
}

type dexScreenerToken struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type dexScreenerPairInfo struct {
	ImageURL string               `json:"imageUrl"`
	Websites []dexScreenerWebsite `json:"websites"`
	Socials  []dexScreenerSocial  `json:"socials"`
}

type dexScreenerWebsite struct {
	URL string `json:"url"`
}

type dexScreenerSocial struct {
	Type string `json:"type"`
}

// fetchJSON GETs a URL and decodes the JSON body into target, retrying
// transport failures with exponential backoff.
func fetchJSON(ctx context.Context, client *http.Client, rawURL string, target interface{}) error {
	delay := sourceRetryDelay
	var lastErr error

	for attempt := 0; attempt < sourceMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > sourceMaxDelay {
				delay = sourceMaxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if err := json.Unmarshal(body, target); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max attempts exceeded: %w", lastErr)
}

// normalizeURL validates and canonicalizes a raw URL from a metadata
// source. Plain http URLs are upgraded to https; anything that is not
// https afterwards is dropped.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "https"
		return u.String()
	case "https":
		return u.String()
	default:
		return ""
	}
}
