// Package main runs the payment gateway HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"crypto-pos-gateway/internal/api"
	"crypto-pos-gateway/internal/explorer"
	"crypto-pos-gateway/internal/gateway"
	"crypto-pos-gateway/internal/observability"
	"crypto-pos-gateway/internal/storage"
	"crypto-pos-gateway/internal/storage/memory"
	"crypto-pos-gateway/internal/storage/migrations"
	pgstore "crypto-pos-gateway/internal/storage/postgres"
)

func main() {
	// .env values act as defaults, real env vars win.
	_ = godotenv.Load()

	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":3000"), "HTTP listen address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address (empty to disable)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", envOr("USE_MEMORY", "") == "true", "Use in-memory storage instead of PostgreSQL")
	pollInterval := flag.Duration("poll-interval", envDurationOr("POLL_INTERVAL", gateway.DefaultPollInterval), "Nominal status poll cadence")
	maxAttempts := flag.Int("max-attempts", envIntOr("MAX_ATTEMPTS", gateway.DefaultMaxAttempts), "Unmatched polls before a payment times out")
	sweepInterval := flag.Duration("sweep-interval", envDurationOr("SWEEP_INTERVAL", gateway.DefaultSweepInterval), "Interval between stale payment sweeps")
	retention := flag.Duration("retention", envDurationOr("RETENTION", gateway.DefaultRetention), "How long payments stay cached after creation")
	serverPoll := flag.Bool("server-poll", envOr("SERVER_POLL", "") == "true", "Poll pending payments server-side instead of relying on client status requests")
	adminUser := flag.String("admin-user", envOr("ADMIN_USERNAME", "admin"), "Admin username")
	adminPasswordHash := flag.String("admin-password-hash", os.Getenv("ADMIN_PASSWORD_HASH"), "bcrypt hash of the admin password")
	jwtSecret := flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for admin session tokens")
	devLogging := flag.Bool("dev-logging", false, "Use human-readable development logging")
	flag.Parse()

	logger, err := newLogger(*devLogging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coins, intents, closeStores, err := buildStores(ctx, logger, *useMemory, *postgresDSN)
	if err != nil {
		logger.Fatal("initialize storage", zap.Error(err))
	}
	defer closeStores()

	metrics := observability.NewMetrics("")

	dispatcher := explorer.NewDispatcher(
		explorer.NewUTXOClient(),
		explorer.NewAccountClient(),
	)

	gw := gateway.New(gateway.Options{
		CoinStore:    coins,
		IntentStore:  intents,
		Explorer:     dispatcher,
		MaxAttempts:  *maxAttempts,
		PollInterval: *pollInterval,
		Logger:       logger,
		Metrics:      metrics,
	})

	sweeper := gateway.NewSweeper(gateway.SweeperOptions{
		IntentStore: intents,
		Interval:    *sweepInterval,
		Retention:   *retention,
		Logger:      logger,
		Metrics:     metrics,
	})
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", zap.Error(err))
		}
	}()

	if *serverPoll {
		watcher := gateway.NewWatcher(gateway.WatcherOptions{
			Gateway:     gw,
			IntentStore: intents,
			Interval:    *pollInterval,
			Logger:      logger,
		})
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	var auth *api.AuthService
	if *adminPasswordHash != "" && *jwtSecret != "" {
		auth = api.NewAuthService(api.AuthOptions{
			Username:     *adminUser,
			PasswordHash: *adminPasswordHash,
			Secret:       *jwtSecret,
		})
	} else {
		logger.Warn("admin API disabled: set ADMIN_PASSWORD_HASH and JWT_SECRET to enable it")
	}

	apiServer := &http.Server{
		Addr: *listenAddr,
		Handler: api.NewServer(api.Options{
			Gateway: gw,
			Coins:   coins,
			Auth:    auth,
			Logger:  logger,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if *metricsAddr != "" {
		go runMetricsServer(ctx, logger, *metricsAddr)
	}

	go func() {
		logger.Info("payment gateway listening", zap.String("addr", *listenAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http server", zap.Error(err))
	}
}

// buildStores wires memory or postgres storage. The returned close function is
// a no-op for memory.
func buildStores(ctx context.Context, logger *zap.Logger, useMemory bool, dsn string) (storage.CoinStore, storage.IntentStore, func(), error) {
	if useMemory {
		logger.Info("using in-memory storage")
		return memory.NewCoinStore(), memory.NewIntentStore(), func() {}, nil
	}

	if dsn == "" {
		return nil, nil, nil, errors.New("POSTGRES_DSN is required unless -use-memory is set")
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("postgres storage ready")

	return pgstore.NewCoinStore(pool), pgstore.NewIntentStore(pool), pool.Close, nil
}

func runMetricsServer(ctx context.Context, logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
