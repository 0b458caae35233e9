// Package config loads the daemon configuration from YAML with
// environment variable substitution.
package config

import (
	"time"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Solana   SolanaConfig   `yaml:"solana"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Metadata MetadataConfig `yaml:"metadata"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SolanaConfig holds RPC and WebSocket endpoint settings.
type SolanaConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	WSURL          string        `yaml:"ws_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MonitorConfig holds check scheduling settings.
type MonitorConfig struct {
	Wallets       []string      `yaml:"wallets"`
	CheckInterval time.Duration `yaml:"check_interval"`
	// WatchActivity enables WebSocket-triggered checks between polls.
	WatchActivity bool `yaml:"watch_activity"`
}

// MetadataConfig overrides metadata source endpoints; empty values keep
// the built-in public endpoints.
type MetadataConfig struct {
	JupiterListURL     string `yaml:"jupiter_list_url"`
	SolanaTokenListURL string `yaml:"solana_token_list_url"`
	SolscanMetaURL     string `yaml:"solscan_meta_url"`
	DexScreenerURL     string `yaml:"dexscreener_url"`
	PrewarmSeed        bool   `yaml:"prewarm_seed"`
}

// StorageConfig selects and configures the storage backends.
type StorageConfig struct {
	// Snapshot backend: "memory" or "redis".
	SnapshotBackend string      `yaml:"snapshot_backend"`
	Redis           RedisConfig `yaml:"redis"`

	// History backend: "memory" or "postgres".
	HistoryBackend string `yaml:"history_backend"`
	PostgresDSN    string `yaml:"postgres_dsn"`

	// Optional check-run timeseries; enabled when the DSN is set.
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // 0 = keep forever
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
