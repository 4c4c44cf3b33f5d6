package bgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-smartfilter/core/config"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process-wide background pool, starting it on first use.
func GetGlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.Worker.Size
			queue = coreconfig.Global.Worker.QueueSize
		}

		globalPool = NewPool(size, queue)
		globalPool.Start(ctx)
	})
	return globalPool
}

// StopGlobalPool stops the singleton pool after draining queued jobs.
func StopGlobalPool() {
	if globalPool != nil {
		globalPool.Stop()
	}
	if globalCancel != nil {
		globalCancel()
	}
}
