package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/ledgerlens/ledgerlens/internal/api"
	"github.com/ledgerlens/ledgerlens/internal/app"
	"github.com/ledgerlens/ledgerlens/internal/consolidate"
	"github.com/ledgerlens/ledgerlens/internal/credentials"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/ledgerlens/ledgerlens/internal/platform/cache"
	"github.com/ledgerlens/ledgerlens/internal/platform/db"
	"github.com/ledgerlens/ledgerlens/internal/snapshot"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
	"github.com/ledgerlens/ledgerlens/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	snapshots := snapshot.NewStore(pool)

	warmupJob := jobs.NewConsolWarmupJob(consolidator, snapshots, api.RedisViewCache{Client: redisClient}, logger, nil)

	warmupTask, err := jobs.NewConsolWarmupTask("")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskConsolWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
