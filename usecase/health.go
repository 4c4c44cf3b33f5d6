package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-smartfilter/domains/health"
	"github.com/AzielCF/az-smartfilter/infrastructure/valkey"
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	healthCheckTimeout    = 2 * time.Second
	DefaultHealthInterval = time.Minute
)

type healthService struct {
	db   *gorm.DB
	vk   *valkey.Client
	pool *bgworker.Pool

	mu   sync.RWMutex
	last map[health.EntityType]health.HealthRecord
}

// NewHealthService checks the configured backends. vk and pool may be nil.
func NewHealthService(db *gorm.DB, vk *valkey.Client, pool *bgworker.Pool) health.IHealthUsecase {
	return &healthService{
		db:   db,
		vk:   vk,
		pool: pool,
		last: make(map[health.EntityType]health.HealthRecord),
	}
}

func (s *healthService) CheckAll(ctx context.Context) []health.HealthRecord {
	records := []health.HealthRecord{s.probe(health.EntityDatabase, func() error { return s.checkDatabase(ctx) })}
	if s.vk != nil {
		records = append(records, s.probe(health.EntityValkey, func() error { return s.checkValkey(ctx) }))
	}
	if s.pool != nil {
		records = append(records, s.probe(health.EntityWorkerPool, s.checkPool))
	}
	return records
}

// StartPeriodicChecks probes every interval until ctx is cancelled.
func (s *healthService) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if records := s.CheckAll(ctx); !s.Healthy(records) {
					logrus.Warn("[HEALTH] Periodic check found unhealthy dependencies")
				}
			}
		}
	}()
}

func (s *healthService) GetStatus(ctx context.Context) []health.HealthRecord {
	if records := s.snapshot(); len(records) > 0 {
		return records
	}
	return s.CheckAll(ctx)
}

// snapshot returns the last records in a stable entity order.
func (s *healthService) snapshot() []health.HealthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]health.HealthRecord, 0, len(s.last))
	for _, t := range []health.EntityType{health.EntityDatabase, health.EntityValkey, health.EntityWorkerPool} {
		if rec, ok := s.last[t]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func (s *healthService) Healthy(records []health.HealthRecord) bool {
	for _, r := range records {
		if r.Status != health.StatusOk {
			return false
		}
	}
	return true
}

func (s *healthService) checkDatabase(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *healthService) checkValkey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return s.vk.Ping(ctx)
}

func (s *healthService) checkPool() error {
	stats := s.pool.GetStats()
	if len(stats.WorkerStats) == 0 {
		return fmt.Errorf("worker pool not started")
	}
	return nil
}

func (s *healthService) probe(entity health.EntityType, check func() error) health.HealthRecord {
	start := time.Now()
	err := check()
	return s.record(entity, err, time.Since(start))
}

func (s *healthService) record(entity health.EntityType, err error, latency time.Duration) health.HealthRecord {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.last[entity]
	rec.EntityType = entity
	rec.LastChecked = now
	rec.LatencyMs = latency.Milliseconds()
	if err != nil {
		rec.Status = health.StatusError
		rec.LastMessage = err.Error()
		rec.ConsecutiveFailures++
		logrus.WithError(err).WithField("failures", rec.ConsecutiveFailures).Warnf("[HEALTH] %s check failed", entity)
	} else {
		rec.Status = health.StatusOk
		rec.LastMessage = "ok"
		rec.ConsecutiveFailures = 0
		rec.LastSuccess = &now
	}
	s.last[entity] = rec
	return rec
}
