// Package jobs contains the asynq task definitions and handlers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ledgerlens/ledgerlens/internal/api"
	"github.com/ledgerlens/ledgerlens/internal/consolidate"
	jobmetrics "github.com/ledgerlens/ledgerlens/internal/jobs"
	"github.com/ledgerlens/ledgerlens/internal/shared"
	"github.com/ledgerlens/ledgerlens/internal/trialbalance"
)

// Consolidator builds the consolidated trial balance for a date.
type Consolidator interface {
	Build(ctx context.Context, asOf time.Time) (consolidate.ConsolidatedTrialBalance, error)
}

// SnapshotWriter archives a built trial balance.
type SnapshotWriter interface {
	Save(ctx context.Context, tb trialbalance.TrialBalance) (uuid.UUID, error)
}

// ConsolWarmupJob rebuilds the consolidated view, archives per-entity
// results and primes the cached endpoint payload.
type ConsolWarmupJob struct {
	Consolidator Consolidator
	Snapshots    SnapshotWriter
	Cache        api.ViewCache
	CacheTTL     time.Duration
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	clock        func() time.Time
}

// NewConsolWarmupJob constructs the job handler.
func NewConsolWarmupJob(consolidator Consolidator, snapshots SnapshotWriter, cache api.ViewCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *ConsolWarmupJob {
	return &ConsolWarmupJob{
		Consolidator: consolidator,
		Snapshots:    snapshots,
		Cache:        cache,
		CacheTTL:     time.Hour,
		Logger:       logger,
		Metrics:      metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the warmup job.
func (j *ConsolWarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Consolidator == nil {
		return errors.New("consol warmup: dependencies not configured")
	}
	var payload ConsolWarmupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskConsolWarmup)
	var resultErr error
	defer func() {
		tracker.End(resultErr)
	}()

	asOf := j.now().Truncate(24 * time.Hour)
	if payload.Date != "" {
		parsed, err := shared.ParseISODate(payload.Date)
		if err != nil {
			j.log().Error("invalid warmup date", slog.String("date", payload.Date))
			resultErr = asynq.SkipRetry
			return resultErr
		}
		asOf = parsed
	}

	start := j.now()
	result, err := j.Consolidator.Build(ctx, asOf)
	if err != nil {
		resultErr = err
		j.log().Error("build consolidated trial balance", slog.String("as_of", asOf.Format(shared.ISODate)), slog.Any("error", err))
		return resultErr
	}

	archived := 0
	if j.Snapshots != nil {
		for _, company := range result.Companies {
			if _, err := j.Snapshots.Save(ctx, company.TrialBalance); err != nil {
				// Re-warming the same date archives nothing new.
				j.log().Warn("archive snapshot",
					slog.Int64("entity_id", company.EntityID),
					slog.Any("error", err))
				continue
			}
			archived++
		}
	}

	if j.Cache != nil {
		data, err := json.Marshal(result)
		if err == nil {
			if err := j.Cache.Set(ctx, api.ConsolViewKey(asOf), data, j.CacheTTL); err != nil {
				j.log().Warn("prime consolidated cache", slog.Any("error", err))
			}
		}
	}

	j.log().Info("consolidated view warmed",
		slog.String("as_of", asOf.Format(shared.ISODate)),
		slog.Int("entities", result.Summary.EntityCount),
		slog.Int("archived", archived),
		slog.Bool("all_connected", result.Summary.AllConnected),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ConsolWarmupJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *ConsolWarmupJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskConsolWarmup))
	}
	return slog.Default().With(slog.String("job", TaskConsolWarmup))
}

func (j *ConsolWarmupJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ConsolWarmupJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
