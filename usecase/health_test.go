package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/AzielCF/az-smartfilter/domains/health"
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openHealthDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db
}

func TestHealth_CheckAllReportsEachBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := bgworker.NewPool(1, 4)
	pool.Start(ctx)
	t.Cleanup(pool.Stop)

	svc := NewHealthService(openHealthDB(t), nil, pool)
	records := svc.CheckAll(ctx)

	require.Len(t, records, 2)
	assert.Equal(t, health.EntityDatabase, records[0].EntityType)
	assert.Equal(t, health.StatusOk, records[0].Status)
	assert.NotNil(t, records[0].LastSuccess)
	assert.Equal(t, health.EntityWorkerPool, records[1].EntityType)
	assert.True(t, svc.Healthy(records))
}

func TestHealth_FailuresAreCountedAndReset(t *testing.T) {
	db := openHealthDB(t)
	svc := NewHealthService(db, nil, nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	ctx := context.Background()
	svc.CheckAll(ctx)
	records := svc.CheckAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, health.StatusError, records[0].Status)
	assert.Equal(t, 2, records[0].ConsecutiveFailures)
	assert.Nil(t, records[0].LastSuccess)
	assert.False(t, svc.Healthy(records))

	assert.Equal(t, records, svc.GetStatus(ctx))
}

func TestHealth_UnstartedPoolIsUnhealthy(t *testing.T) {
	svc := NewHealthService(openHealthDB(t), nil, bgworker.NewPool(1, 4))
	records := svc.CheckAll(context.Background())

	require.Len(t, records, 2)
	assert.Equal(t, health.StatusError, records[1].Status)
}

func TestHealth_GetStatusProbesOnce(t *testing.T) {
	svc := NewHealthService(openHealthDB(t), nil, nil)
	records := svc.GetStatus(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, health.StatusOk, records[0].Status)
}

func TestHealth_PeriodicChecksStopWithContext(t *testing.T) {
	svc := NewHealthService(openHealthDB(t), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	svc.StartPeriodicChecks(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(svc.(*healthService).snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
}
