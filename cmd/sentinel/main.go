// Package main runs the airdrop sentinel daemon: it polls wallets for
// token balance changes, classifies the claim risk of every increase, and
// serves detected events plus health/metrics over HTTP. A WebSocket
// subscription can additionally trigger checks when a wallet is mentioned
// in on-chain logs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"airdrop-sentinel/internal/config"
	"airdrop-sentinel/internal/metadata"
	"airdrop-sentinel/internal/monitor"
	"airdrop-sentinel/internal/observability"
	"airdrop-sentinel/internal/risk"
	"airdrop-sentinel/internal/solana"
	"airdrop-sentinel/internal/storage"
	chstore "airdrop-sentinel/internal/storage/clickhouse"
	"airdrop-sentinel/internal/storage/memory"
	"airdrop-sentinel/internal/storage/migrations"
	pgstore "airdrop-sentinel/internal/storage/postgres"
	redisstore "airdrop-sentinel/internal/storage/redis"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if len(cfg.Monitor.Wallets) == 0 {
		logger.Error("no wallets configured")
		os.Exit(1)
	}
	for _, wallet := range cfg.Monitor.Wallets {
		if err := solana.ValidateAddress(wallet); err != nil {
			logger.Error("invalid wallet address", "wallet", wallet, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sentinel exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("sentinel stopped")
}

// newLogger builds a slog.Logger per the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	metrics := observability.NewMetrics("")

	fetcher := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithTimeout(cfg.Solana.RequestTimeout),
		solana.WithMetrics(metrics))

	resolver := metadata.NewResolver(logger,
		metadata.WithMetrics(metrics),
		metadata.WithSeedURLs(
			orDefault(cfg.Metadata.JupiterListURL, metadata.DefaultJupiterListURL),
			orDefault(cfg.Metadata.SolanaTokenListURL, metadata.DefaultSolanaTokenListURL)),
		metadata.WithLookupURLs(
			orDefault(cfg.Metadata.SolscanMetaURL, metadata.DefaultSolscanMetaURL),
			orDefault(cfg.Metadata.DexScreenerURL, metadata.DefaultDexScreenerURL)))
	if cfg.Metadata.PrewarmSeed {
		resolver.PrewarmSeed(ctx)
	}

	snapshots, history, opts, cleanup, err := buildStores(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	mon := monitor.New(fetcher, resolver, risk.NewScorer(), snapshots, logger,
		append(opts, monitor.WithMetrics(metrics))...)

	metrics.WalletsMonitored.Set(float64(len(cfg.Monitor.Wallets)))

	srv := &server{
		monitor: mon,
		history: history,
		logger:  logger,
		started: time.Now(),
		wallets: cfg.Monitor.Wallets,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.listen(gctx, cfg.Server.Port)
	})
	g.Go(func() error {
		return runChecks(gctx, cfg, mon, logger, metrics)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				metrics.UptimeSeconds.Inc()
			}
		}
	})

	return g.Wait()
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// buildStores wires the configured storage backends and returns monitor
// options for the optional stores.
func buildStores(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (storage.SnapshotStore, storage.EventHistoryStore, []monitor.Option, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var snapshots storage.SnapshotStore
	switch cfg.Storage.SnapshotBackend {
	case "redis":
		client, err := redisstore.Connect(ctx, cfg.Storage.Redis.Addr,
			cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err != nil {
			return nil, nil, nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		snapshots = redisstore.NewSnapshotStore(client, cfg.Storage.Redis.TTL)
		logger.Info("using redis snapshots", "addr", cfg.Storage.Redis.Addr)
	default:
		snapshots = memory.NewSnapshotStore()
	}

	var history storage.EventHistoryStore
	var opts []monitor.Option
	switch cfg.Storage.HistoryBackend {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, nil, cleanup, err
		}
		history = pgstore.NewEventHistoryStore(pool, pgstore.WithMetrics(metrics))
		logger.Info("using postgres event history")
	default:
		history = memory.NewEventHistoryStore()
	}
	opts = append(opts, monitor.WithHistory(history))

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = conn.Close() })
		opts = append(opts, monitor.WithCheckTimeseries(
			chstore.NewCheckTimeseriesStore(conn, chstore.WithMetrics(metrics))))
		logger.Info("check timeseries enabled")
	}

	return snapshots, history, opts, cleanup, nil
}

// runChecks drives the periodic checks and, when enabled, WebSocket
// activity triggers.
func runChecks(
	ctx context.Context,
	cfg *config.AppConfig,
	mon *monitor.Monitor,
	logger *slog.Logger,
	metrics *observability.Metrics,
) error {
	triggers := make(chan string, len(cfg.Monitor.Wallets))

	if cfg.Monitor.WatchActivity && cfg.Solana.WSURL != "" {
		wsCfg := solana.DefaultWSConfig()
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSURL, &wsCfg, logger)
		if err != nil {
			// Activity watching is an accelerator; polling still covers
			// every wallet.
			logger.Warn("websocket connect failed, polling only", "error", err)
		} else {
			defer ws.Close()
			for _, wallet := range cfg.Monitor.Wallets {
				notifications, err := ws.SubscribeWallet(ctx, wallet)
				if err != nil {
					logger.Warn("wallet subscription failed", "wallet", wallet, "error", err)
					continue
				}
				go forwardActivity(ctx, notifications, triggers, metrics, logger)
			}
		}
	}

	checkAll := func() {
		for _, wallet := range cfg.Monitor.Wallets {
			if ctx.Err() != nil {
				return
			}
			if _, err := mon.CheckForAirdrops(ctx, wallet); err != nil {
				logger.Warn("check failed", "wallet", wallet, "error", err)
			}
		}
	}

	checkAll()

	ticker := time.NewTicker(cfg.Monitor.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			checkAll()
		case wallet := <-triggers:
			if _, err := mon.CheckForAirdrops(ctx, wallet); err != nil {
				logger.Warn("triggered check failed", "wallet", wallet, "error", err)
			}
		}
	}
}

// forwardActivity turns WebSocket notifications into check triggers,
// dropping triggers when one is already pending for the wallet.
func forwardActivity(
	ctx context.Context,
	notifications <-chan solana.ActivityNotification,
	triggers chan<- string,
	metrics *observability.Metrics,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n.Err != nil {
				logger.Debug("activity stream error", "wallet", n.Wallet, "error", n.Err)
				metrics.WSReconnects.Inc()
				continue
			}
			select {
			case triggers <- n.Wallet:
			default:
			}
		}
	}
}

// server exposes health, metrics and on-demand check endpoints.
type server struct {
	monitor *monitor.Monitor
	history storage.EventHistoryStore
	logger  *slog.Logger
	started time.Time
	wallets []string

	mu         sync.Mutex
	lastCheck  time.Time
	checksRun  int
	lastEvents int
}

func (s *server) listen(ctx context.Context, port int) error {
	mux := http.NewServeMux()

	health := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
	mux.HandleFunc("/health", health)
	mux.HandleFunc("/healthz", health)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/check", s.handleCheck)
	mux.HandleFunc("/events", s.handleEvents)

	httpSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "port", port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status     string    `json:"status"`
	Uptime     string    `json:"uptime"`
	Wallets    int       `json:"wallets"`
	ChecksRun  int       `json:"checks_run"`
	LastCheck  time.Time `json:"last_check,omitempty"`
	LastEvents int       `json:"last_events"`
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.started).String(),
		Wallets:    len(s.wallets),
		ChecksRun:  s.checksRun,
		LastCheck:  s.lastCheck,
		LastEvents: s.lastEvents,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleCheck runs an on-demand check for one wallet and returns the
// detected events.
func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		http.Error(w, "wallet query parameter required", http.StatusBadRequest)
		return
	}
	if err := solana.ValidateAddress(wallet); err != nil {
		http.Error(w, "invalid wallet address", http.StatusBadRequest)
		return
	}

	events, err := s.monitor.CheckForAirdrops(r.Context(), wallet)
	if err != nil {
		s.logger.Warn("on-demand check failed", "wallet", wallet, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.checksRun++
	s.lastCheck = time.Now()
	s.lastEvents = len(events)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// handleEvents returns recent events, optionally filtered by wallet.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var err error
	var events any
	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		events, err = s.history.RecentByWallet(r.Context(), wallet, limit)
	} else {
		events, err = s.history.Recent(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
