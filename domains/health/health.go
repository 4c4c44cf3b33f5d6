package health

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityDatabase   EntityType = "database"
	EntityValkey     EntityType = "valkey"
	EntityWorkerPool EntityType = "worker_pool"
)

type Status string

const (
	StatusOk      Status = "OK"
	StatusError   Status = "ERROR"
	StatusUnknown Status = "UNKNOWN"
)

// HealthRecord is the latest probe result for one backend the service depends on.
type HealthRecord struct {
	EntityType          EntityType `json:"entity_type"`
	Status              Status     `json:"status"`
	LastMessage         string     `json:"last_message"`
	LatencyMs           int64      `json:"latency_ms"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastChecked         time.Time  `json:"last_checked"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
}

type IHealthUsecase interface {
	CheckAll(ctx context.Context) []HealthRecord
	// GetStatus returns the cached records, probing once if nothing was checked yet.
	GetStatus(ctx context.Context) []HealthRecord
	Healthy(records []HealthRecord) bool
	StartPeriodicChecks(ctx context.Context, interval time.Duration)
}
