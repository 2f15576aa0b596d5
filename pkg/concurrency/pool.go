package concurrency

import (
	"fmt"
	"time"

	"github.com/alitto/pond"
	"go.uber.org/zap"
)

type PoolConfig struct {
	Name        string
	MaxWorkers  int
	MaxCapacity int
	IdleTimeout time.Duration
	// NonBlocking makes Submit fail instead of waiting when the queue is full.
	NonBlocking bool
}

// WorkerPool runs detached tasks on a bounded alitto/pond pool.
type WorkerPool struct {
	pool   *pond.WorkerPool
	config PoolConfig
}

func NewWorkerPool(cfg PoolConfig, logger *zap.Logger) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = 100
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	logger = logger.With(zap.String("component", "worker_pool"), zap.String("pool", cfg.Name))

	pool := pond.New(
		cfg.MaxWorkers,
		cfg.MaxCapacity,
		pond.MinWorkers(1),
		pond.IdleTimeout(cfg.IdleTimeout),
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			logger.Error("Worker pool panic recovered", zap.Any("panic", p))
		}),
	)

	return &WorkerPool{
		pool:   pool,
		config: cfg,
	}
}

func (wp *WorkerPool) Submit(task func()) error {
	if wp.config.NonBlocking {
		if !wp.pool.TrySubmit(task) {
			return fmt.Errorf("worker pool '%s' is full (capacity: %d)", wp.config.Name, wp.config.MaxCapacity)
		}
		return nil
	}

	wp.pool.Submit(task)
	return nil
}

// Stop waits for queued tasks to finish.
func (wp *WorkerPool) Stop() {
	wp.pool.StopAndWait()
}
