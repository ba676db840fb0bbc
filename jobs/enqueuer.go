package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer submits background tasks through the asynq client.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueWarmup schedules a consolidation warmup for the given date
// (empty means today) and returns the task id.
func (e *Enqueuer) EnqueueWarmup(ctx context.Context, date string) (string, error) {
	if e == nil || e.client == nil {
		return "", fmt.Errorf("jobs: enqueuer not configured")
	}
	task, err := NewConsolWarmupTask(date)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("jobs: enqueue %s: %w", TaskConsolWarmup, err)
	}
	return info.ID, nil
}
