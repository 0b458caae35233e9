package metadata

import (
	"testing"

	"airdrop-sentinel/internal/domain"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("mint1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(domain.TokenMetadata{Mint: "mint1", Symbol: "AAA", Name: "Token A"})

	meta, ok := c.Get("mint1")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if meta.Symbol != "AAA" {
		t.Errorf("unexpected symbol %q", meta.Symbol)
	}
	if c.Len() != 1 {
		t.Errorf("expected len 1, got %d", c.Len())
	}
}

func TestCachePutMergesOnConflict(t *testing.T) {
	c := NewCache()
	c.Put(domain.TokenMetadata{Mint: "mint1", Symbol: "AAA", Verified: true})
	c.Put(domain.TokenMetadata{Mint: "mint1", Name: "Token A", LogoURL: "https://example.com/a.png"})

	meta, _ := c.Get("mint1")
	if meta.Symbol != "AAA" {
		t.Errorf("existing symbol must survive, got %q", meta.Symbol)
	}
	if meta.Name != "Token A" {
		t.Errorf("new name must fill the gap, got %q", meta.Name)
	}
	if !meta.Verified {
		t.Error("verified must never downgrade")
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	c := NewCache()
	c.Put(domain.TokenMetadata{Mint: "MintABC", Symbol: "AAA"})

	if _, ok := c.Get("  mintabc "); !ok {
		t.Error("expected trimmed lowercase lookup to hit")
	}
	if _, ok := c.Get("MINTABC"); !ok {
		t.Error("expected uppercase lookup to hit")
	}
}

func TestCacheIgnoresEmptyMint(t *testing.T) {
	c := NewCache()
	c.Put(domain.TokenMetadata{Symbol: "AAA"})
	if c.Len() != 0 {
		t.Errorf("expected empty-mint put to be ignored, len %d", c.Len())
	}
}
