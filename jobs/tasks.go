package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskConsolWarmup rebuilds and caches the consolidated trial balance.
	TaskConsolWarmup = "consol:warmup"
)

// ConsolWarmupPayload configures the scope of the warmup job.
type ConsolWarmupPayload struct {
	// Date is the as-of date in YYYY-MM-DD; empty means today.
	Date string `json:"date"`
}

// NewConsolWarmupTask creates an Asynq task for warming the consolidated view.
func NewConsolWarmupTask(date string) (*asynq.Task, error) {
	body, err := json.Marshal(ConsolWarmupPayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConsolWarmup, body, asynq.Queue(QueueDefault)), nil
}
