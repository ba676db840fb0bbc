package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/ledgerlens/ledgerlens/internal/api"
	"github.com/ledgerlens/ledgerlens/internal/app"
	"github.com/ledgerlens/ledgerlens/internal/compare"
	"github.com/ledgerlens/ledgerlens/internal/consolidate"
	"github.com/ledgerlens/ledgerlens/internal/credentials"
	"github.com/ledgerlens/ledgerlens/internal/investigate"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/platform/cache"
	"github.com/ledgerlens/ledgerlens/internal/platform/db"
	"github.com/ledgerlens/ledgerlens/internal/snapshot"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
	"github.com/ledgerlens/ledgerlens/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	cipherKey, err := cfg.CipherKey()
	if err != nil {
		logger.Error("cipher key", slog.Any("error", err))
		os.Exit(1)
	}
	credStore, err := credentials.NewStore(pool, redisClient, cipherKey)
	if err != nil {
		logger.Error("init credential store", slog.Any("error", err))
		os.Exit(1)
	}

	reportClient := ledger.NewClient(cfg.LedgerAPIURL, credStore, logger)
	builder := trialbalance.NewBuilder(reportClient, logger)
	consolidator := consolidate.NewService(credStore, builder, logger)
	comparisons := compare.NewService(builder)
	investigator := investigate.NewInvestigator()
	snapshots := snapshot.NewStore(pool)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	apiHandler := api.NewHandler(api.HandlerParams{
		Logger:        logger,
		Directory:     credStore,
		TrialBalances: builder,
		Consolidator:  consolidator,
		Comparisons:   comparisons,
		Investigator:  investigator,
		Snapshots:     snapshots,
		Enqueuer:      jobs.NewEnqueuer(asynqClient),
		Cache:         api.RedisViewCache{Client: redisClient},
		CacheTTL:      cfg.ConsolidatedCacheTTL,
	})

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		API:    apiHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("stopped")
}
