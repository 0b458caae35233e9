// Package metadata resolves token mints to descriptive metadata using a
// layered cache-then-network strategy: a one-time bulk seed load of two
// public token directories, then on-demand per-mint lookups against two
// secondary sources for cache misses. Resolution never fails; when no
// source has data a synthesized placeholder is returned.
package metadata

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/observability"
)

// Resolver resolves token metadata. Construct with NewResolver and share
// across checks; the cache lives for the process lifetime.
type Resolver struct {
	client  *http.Client
	cache   *Cache
	logger  *slog.Logger
	metrics *observability.Metrics

	jupiterListURL     string
	solanaTokenListURL string
	solscanMetaURL     string
	dexScreenerURL     string

	seedOnce sync.Once
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithSeedURLs overrides the bulk directory endpoints.
func WithSeedURLs(jupiterURL, tokenListURL string) ResolverOption {
	return func(r *Resolver) {
		r.jupiterListURL = jupiterURL
		r.solanaTokenListURL = tokenListURL
	}
}

// WithLookupURLs overrides the on-demand per-mint endpoints.
func WithLookupURLs(solscanURL, dexScreenerURL string) ResolverOption {
	return func(r *Resolver) {
		r.solscanMetaURL = solscanURL
		r.dexScreenerURL = dexScreenerURL
	}
}

// WithMetrics wires prometheus metrics into the resolver.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a Resolver with a fresh cache.
func NewResolver(logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resolver{
		client:             &http.Client{Timeout: 10 * time.Second},
		cache:              NewCache(),
		logger:             logger,
		jupiterListURL:     DefaultJupiterListURL,
		solanaTokenListURL: DefaultSolanaTokenListURL,
		solscanMetaURL:     DefaultSolscanMetaURL,
		dexScreenerURL:     DefaultDexScreenerURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metadata resolves a mint to metadata. Never fails: cache hit, then seed
// directories, then concurrent on-demand lookups, then a placeholder.
func (r *Resolver) Metadata(ctx context.Context, mint string) domain.TokenMetadata {
	if meta, ok := r.cache.Get(mint); ok {
		r.countCache(true)
		return meta
	}
	r.countCache(false)

	r.ensureSeedLoaded(ctx)

	if meta, ok := r.cache.Get(mint); ok {
		return meta
	}

	if meta, ok := r.lookupOnDemand(ctx, mint); ok {
		r.cache.Put(meta)
		r.gaugeCacheSize()
		return meta
	}

	// Placeholder is intentionally not cached so a later check can still
	// discover the token once a source knows about it.
	return domain.FallbackMetadata(mint)
}

// PrewarmSeed loads the bulk directories eagerly. Optional; Metadata
// triggers the same load on first miss.
func (r *Resolver) PrewarmSeed(ctx context.Context) {
	r.ensureSeedLoaded(ctx)
}

// CacheSize returns the number of cached mints.
func (r *Resolver) CacheSize() int {
	return r.cache.Len()
}

// ensureSeedLoaded fetches both directories once per process lifetime.
// Either source failing degrades to an empty contribution.
func (r *Resolver) ensureSeedLoaded(ctx context.Context) {
	r.seedOnce.Do(func() {
		var wg sync.WaitGroup
		var jupiter, tokenList map[string]domain.TokenMetadata

		wg.Add(2)
		go func() {
			defer wg.Done()
			jupiter = r.loadJupiterList(ctx)
		}()
		go func() {
			defer wg.Done()
			tokenList = r.loadSolanaTokenList(ctx)
		}()
		wg.Wait()

		// Jupiter data wins field conflicts with the token list.
		r.cache.PutAll(jupiter)
		r.cache.PutAll(tokenList)
		r.gaugeCacheSize()

		r.logger.Info("metadata seed loaded",
			"jupiter", len(jupiter), "token_list", len(tokenList), "cache", r.cache.Len())
	})
}

// loadJupiterList fetches the Jupiter strict list. A token is considered
// verified when it carries tags or a coingecko ID.
func (r *Resolver) loadJupiterList(ctx context.Context) map[string]domain.TokenMetadata {
	var entries []jupiterEntry
	if err := fetchJSON(ctx, r.client, r.jupiterListURL, &entries); err != nil {
		r.countSourceError("jupiter_list")
		r.logger.Warn("jupiter list load failed", "error", err)
		return nil
	}

	out := make(map[string]domain.TokenMetadata, len(entries))
	for _, e := range entries {
		meta := entryToMetadata(e)
		meta.Verified = len(e.Tags) > 0 || (e.Extensions != nil && e.Extensions.CoingeckoID != "")
		putFirst(out, meta)
	}
	return out
}

// loadSolanaTokenList fetches the legacy Solana token list. A token is
// considered verified when tagged verified, community or strict.
func (r *Resolver) loadSolanaTokenList(ctx context.Context) map[string]domain.TokenMetadata {
	var resp solanaTokenListResponse
	if err := fetchJSON(ctx, r.client, r.solanaTokenListURL, &resp); err != nil {
		r.countSourceError("solana_token_list")
		r.logger.Warn("solana token list load failed", "error", err)
		return nil
	}

	out := make(map[string]domain.TokenMetadata, len(resp.Tokens))
	for _, e := range resp.Tokens {
		meta := entryToMetadata(e)
		meta.Verified = hasAny(e.Tags, "verified", "community", "strict")
		putFirst(out, meta)
	}
	return out
}

// entryToMetadata normalizes a directory entry into the canonical shape.
func entryToMetadata(e jupiterEntry) domain.TokenMetadata {
	meta := domain.TokenMetadata{
		Mint:    e.Address,
		Symbol:  e.Symbol,
		Name:    e.Name,
		LogoURL: normalizeURL(e.LogoURI),
		Tags:    normalizeTags(e.Tags),
	}
	if e.Extensions != nil {
		meta.WebsiteURL = normalizeURL(e.Extensions.Website)
		meta.ExternalID = e.Extensions.CoingeckoID
	}
	return meta
}

// putFirst keeps the first entry per mint; directories occasionally list
// duplicates and the first one is the canonical row.
func putFirst(out map[string]domain.TokenMetadata, meta domain.TokenMetadata) {
	key := normalizeMintKey(meta.Mint)
	if key == "" {
		return
	}
	if _, exists := out[key]; !exists {
		out[key] = meta
	}
}

// lookupOnDemand queries both per-mint sources concurrently and merges the
// results, Solscan taking field precedence over DexScreener.
func (r *Resolver) lookupOnDemand(ctx context.Context, mint string) (domain.TokenMetadata, bool) {
	var wg sync.WaitGroup
	var solscan, dexScreener *domain.TokenMetadata

	wg.Add(2)
	go func() {
		defer wg.Done()
		solscan = r.lookupSolscan(ctx, mint)
	}()
	go func() {
		defer wg.Done()
		dexScreener = r.lookupDexScreener(ctx, mint)
	}()
	wg.Wait()

	switch {
	case solscan != nil && dexScreener != nil:
		return Merge(*solscan, *dexScreener), true
	case solscan != nil:
		return *solscan, true
	case dexScreener != nil:
		return *dexScreener, true
	default:
		return domain.TokenMetadata{}, false
	}
}

// lookupSolscan fetches per-mint metadata from Solscan. Returns nil when
// the source has nothing usable.
func (r *Resolver) lookupSolscan(ctx context.Context, mint string) *domain.TokenMetadata {
	u := r.solscanMetaURL + "?tokenAddress=" + url.QueryEscape(mint)

	var resp solscanMetaResponse
	if err := fetchJSON(ctx, r.client, u, &resp); err != nil {
		r.countSourceError("solscan")
		r.logger.Debug("solscan lookup failed", "mint", mint, "error", err)
		return nil
	}

	if resp.Symbol == "" && resp.Name == "" {
		return nil
	}

	meta := domain.TokenMetadata{
		Mint:       mint,
		Symbol:     resp.Symbol,
		Name:       resp.Name,
		LogoURL:    normalizeURL(resp.Icon),
		WebsiteURL: normalizeURL(resp.Website),
		Tags:       normalizeTags(resp.Tags),
		ExternalID: resp.CoingeckoID,
		Verified:   resp.Verified || resp.Name != "",
	}
	if meta.Symbol == "" {
		meta.Symbol = domain.ShortMint(mint)
	}
	if meta.Name == "" {
		meta.Name = domain.UnknownTokenName
	}
	return &meta
}

// lookupDexScreener fetches per-mint metadata from DexScreener pairs.
// A token appearing in actively traded pairs is treated as verified.
func (r *Resolver) lookupDexScreener(ctx context.Context, mint string) *domain.TokenMetadata {
	u := r.dexScreenerURL + "/" + url.PathEscape(mint)

	var resp dexScreenerResponse
	if err := fetchJSON(ctx, r.client, u, &resp); err != nil {
		r.countSourceError("dexscreener")
		r.logger.Debug("dexscreener lookup failed", "mint", mint, "error", err)
		return nil
	}

	if len(resp.Pairs) == 0 {
		return nil
	}

	token := resp.Pairs[0].BaseToken
	if token.Symbol == "" && token.Name == "" {
		token = resp.Pairs[0].QuoteToken
	}
	if token.Symbol == "" && token.Name == "" {
		return nil
	}

	var tags []string
	var website, image string
	for _, pair := range resp.Pairs {
		tags = append(tags, pair.Labels...)
		if pair.Info == nil {
			continue
		}
		for _, s := range pair.Info.Socials {
			tags = append(tags, s.Type)
		}
		if website == "" && len(pair.Info.Websites) > 0 {
			website = pair.Info.Websites[0].URL
		}
		if image == "" {
			image = pair.Info.ImageURL
		}
	}

	return &domain.TokenMetadata{
		Mint:       mint,
		Symbol:     token.Symbol,
		Name:       token.Name,
		LogoURL:    normalizeURL(image),
		WebsiteURL: normalizeURL(website),
		Tags:       normalizeTags(tags),
		Verified:   true,
	}
}

func hasAny(tags []string, wanted ...string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func (r *Resolver) countCache(hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.MetadataCacheHits.Inc()
	} else {
		r.metrics.MetadataCacheMisses.Inc()
	}
}

func (r *Resolver) countSourceError(source string) {
	if r.metrics == nil {
		return
	}
	r.metrics.MetadataSourceErrors.WithLabelValues(source).Inc()
}

func (r *Resolver) gaugeCacheSize() {
	if r.metrics == nil {
		return
	}
	r.metrics.MetadataCacheSize.Set(float64(r.cache.Len()))
}
