package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Solana.RPCURL == "" {
		cfg.Solana.RPCURL = "https://api.mainnet-beta.solana.com"
	}
	if cfg.Solana.RequestTimeout == 0 {
		cfg.Solana.RequestTimeout = 10 * time.Second
	}
	if cfg.Monitor.CheckInterval == 0 {
		cfg.Monitor.CheckInterval = time.Minute
	}
	if cfg.Storage.SnapshotBackend == "" {
		cfg.Storage.SnapshotBackend = "memory"
	}
	if cfg.Storage.HistoryBackend == "" {
		cfg.Storage.HistoryBackend = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks configuration consistency.
func (c *AppConfig) Validate() error {
	switch c.Storage.SnapshotBackend {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr required for redis snapshot backend")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Storage.SnapshotBackend)
	}

	switch c.Storage.HistoryBackend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn required for postgres history backend")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.Storage.HistoryBackend)
	}

	return nil
}
