// feedd ingests provider prices under a rate limit and redistributes them
// to stream (TCP) and datagram (UDP) clients.
// Usage: go run ./cmd/feedd --config configs/feedd.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/janm2001/cryptofeed/internal/auth"
	"github.com/janm2001/cryptofeed/internal/broadcast"
	"github.com/janm2001/cryptofeed/internal/cache"
	"github.com/janm2001/cryptofeed/internal/coingecko"
	"github.com/janm2001/cryptofeed/internal/config"
	"github.com/janm2001/cryptofeed/internal/database"
	"github.com/janm2001/cryptofeed/internal/datagram"
	"github.com/janm2001/cryptofeed/internal/fetcher"
	"github.com/janm2001/cryptofeed/internal/history"
	"github.com/janm2001/cryptofeed/internal/stream"
	"github.com/janm2001/cryptofeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedd.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"upstream_url", cfg.Upstream.RestURL,
		"stream_addr", cfg.Stream.ListenAddr,
		"datagram_addr", cfg.Datagram.ListenAddr,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Upstream client + rate-limited fetcher
	upstream := coingecko.NewClient(
		cfg.Upstream.RestURL,
		cfg.Upstream.APIKey,
		coingecko.WithLogger(logger),
		coingecko.WithTimeout(cfg.Upstream.Timeout),
		coingecko.WithRetries(cfg.Upstream.MaxRetries, 500*time.Millisecond),
	)

	priceFetcher := fetcher.New(fetcher.Config{
		RateWindow: cfg.Upstream.RateWindow,
		RateQuota:  cfg.Upstream.RateQuota,
		MinSpacing: cfg.Upstream.MinSpacing,
	}, upstream, logger)

	// History store (optional)
	var (
		pool  *pgxpool.Pool
		store history.Store
	)
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = history.NewPGStore(pool, logger)
		logger.Info("database connected")
	} else {
		logger.Info("history persistence disabled")
	}

	// Local observers
	memCache := cache.NewMemoryCache()
	observers := []broadcast.Observer{memCache}

	if cfg.Redis.Enabled {
		mirror, err := cache.NewRedisMirror(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		observers = append(observers, mirror)
		logger.Info("redis mirror connected", "addr", cfg.Redis.Addr)
	}

	// Stream server
	authenticator := auth.NewStaticAuthenticator(cfg.Auth.Tokens)
	streamRegistry := stream.NewRegistry(logger)
	streamServer := stream.NewServer(stream.Config{
		ListenAddr:   cfg.Stream.ListenAddr,
		WriteTimeout: cfg.Stream.WriteTimeout,
		MaxLineBytes: cfg.Stream.MaxLineBytes,
		DefaultTopN:  cfg.Feed.TopN,
		Currency:     cfg.Feed.Currency,
	}, streamRegistry, priceFetcher, authenticator, logger)

	if err := streamServer.Start(ctx); err != nil {
		logger.Error("failed to start stream server", "error", err)
		os.Exit(1)
	}

	// Datagram server
	datagramRegistry := datagram.NewRegistry()
	datagramServer := datagram.NewServer(datagram.Config{
		ListenAddr:    cfg.Datagram.ListenAddr,
		SubscriberTTL: cfg.Datagram.SubscriberTTL,
		SweepInterval: cfg.Datagram.SweepInterval,
	}, datagramRegistry, logger)

	if err := datagramServer.Start(ctx); err != nil {
		logger.Error("failed to start datagram server", "error", err)
		os.Exit(1)
	}

	// Orchestrator
	orchestrator := broadcast.New(broadcast.Config{
		PollInterval:    cfg.Feed.PollInterval,
		TopN:            cfg.Feed.TopN,
		Currency:        cfg.Feed.Currency,
		HistoryInterval: cfg.Feed.HistoryInterval,
		HistoryTopK:     cfg.Feed.HistoryTopK,
	}, priceFetcher, streamRegistry, datagramServer, store, observers, logger)

	if err := orchestrator.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg, pool, priceFetcher, streamRegistry, datagramRegistry, orchestrator),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("feedd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := orchestrator.Stop(shutdownCtx); err != nil {
		logger.Warn("orchestrator stop", "error", err)
	}
	if err := streamServer.Stop(shutdownCtx); err != nil {
		logger.Warn("stream server stop", "error", err)
	}
	if err := datagramServer.Stop(shutdownCtx); err != nil {
		logger.Warn("datagram server stop", "error", err)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("feedd stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	cfg *config.FeedConfig,
	pool *pgxpool.Pool,
	priceFetcher *fetcher.Fetcher,
	streamRegistry *stream.Registry,
	datagramRegistry *datagram.Registry,
	orchestrator *broadcast.Orchestrator,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(cfg.Health.Path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		fStats := priceFetcher.Stats()
		health.Components["fetcher"] = map[string]interface{}{
			"upstream_calls":  fStats.UpstreamCalls,
			"fallbacks":       fStats.Fallbacks,
			"calls_in_window": fStats.CallsInWindow,
			"cached":          fStats.CachedCount,
		}
		if fStats.CachedCount == 0 {
			health.Status = "degraded"
		}

		health.Components["stream"] = streamRegistry.Stats()
		health.Components["datagram"] = datagramRegistry.Stats()
		health.Components["orchestrator"] = orchestrator.Stats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"stream":   streamRegistry.Stats(),
			"datagram": datagramRegistry.Stats(),
		})
	})

	mux.HandleFunc("/debug/prices", func(w http.ResponseWriter, r *http.Request) {
		prices := orchestrator.LastKnown()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":  len(prices),
			"prices": prices,
		})
	})

	return mux
}
