// Package main runs a single airdrop check for one wallet and prints the
// detected events. Without a Redis baseline every held token surfaces as
// an event, which doubles as a risk audit of the wallet's holdings.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"airdrop-sentinel/internal/domain"
	"airdrop-sentinel/internal/metadata"
	"airdrop-sentinel/internal/monitor"
	"airdrop-sentinel/internal/risk"
	"airdrop-sentinel/internal/solana"
	"airdrop-sentinel/internal/storage"
	"airdrop-sentinel/internal/storage/memory"
	redisstore "airdrop-sentinel/internal/storage/redis"
)

func main() {
	_ = godotenv.Load()

	wallet := flag.String("wallet", "", "Wallet address to check (required)")
	rpcEndpoint := flag.String("rpc-endpoint",
		envOr("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		"Solana RPC HTTP endpoint")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"),
		"Redis address for a persistent baseline (optional)")
	asJSON := flag.Bool("json", false, "Print events as JSON")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall check timeout")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelWarn,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	if *wallet == "" {
		fmt.Fprintln(os.Stderr, "-wallet is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := solana.ValidateAddress(*wallet); err != nil {
		fmt.Fprintf(os.Stderr, "invalid wallet address: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var snapshots storage.SnapshotStore = memory.NewSnapshotStore()
	if *redisAddr != "" {
		client, err := redisstore.Connect(ctx, *redisAddr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis connect failed: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()
		snapshots = redisstore.NewSnapshotStore(client, 0)
	}

	fetcher := solana.NewHTTPClient(*rpcEndpoint)
	resolver := metadata.NewResolver(logger)
	mon := monitor.New(fetcher, resolver, risk.NewScorer(), snapshots, logger)

	events, err := mon.CheckForAirdrops(ctx, *wallet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printEvents(events)
}

func printEvents(events []domain.AirdropEvent) {
	if len(events) == 0 {
		fmt.Println("No new token balances detected.")
		return
	}

	fmt.Printf("%d new token balance(s):\n\n", len(events))
	for _, e := range events {
		fmt.Printf("  %s (%s)\n", e.Metadata.Name, e.Metadata.Symbol)
		fmt.Printf("    mint:   %s\n", e.Mint)
		fmt.Printf("    delta:  +%s (now %s)\n", e.Delta(), e.NewAmount)
		fmt.Printf("    risk:   %s (%d/100)\n", e.Risk.Level, e.Risk.Score)
		for _, reason := range e.Risk.Reasons {
			fmt.Printf("      - %s\n", reason)
		}
		fmt.Println()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
