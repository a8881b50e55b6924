package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voiceagent-server/internal/observability"
)

var (
	ErrPoolNotStarted   = errors.New("worker pool not started")
	ErrPoolShuttingDown = errors.New("worker pool is shutting down")
)

// TaskResult represents the outcome of running a task.
type TaskResult struct {
	TaskID string
	Error  error
}

// ResultCallback is called after each task finishes.
type ResultCallback func(result TaskResult)

// WorkerPoolConfig holds configuration for the worker pool.
type WorkerPoolConfig struct {
	// Name labels the pool in logs.
	Name string

	// NumWorkers is the number of concurrent workers to run.
	NumWorkers int

	// QueueSize is the size of the task queue buffer.
	// If the queue is full, Submit() will block.
	QueueSize int

	// DrainTimeout is the maximum time to wait for in-flight tasks
	// to complete during graceful shutdown.
	DrainTimeout time.Duration

	// OnResult is called after each task is processed (optional).
	OnResult ResultCallback
}

// DefaultWorkerPoolConfig returns sensible defaults for a worker pool.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Name:         "tasks",
		NumWorkers:   2,
		QueueSize:    32,
		DrainTimeout: 30 * time.Second,
	}
}

// pool implements the WorkerPool interface.
type pool struct {
	config WorkerPoolConfig
	logger *observability.Logger

	taskChan chan Task
	wg       sync.WaitGroup

	mu       sync.Mutex
	started  bool
	draining bool
	stopped  bool
	cancelFn context.CancelFunc
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *observability.Logger) WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if config.Name == "" {
		config.Name = defaults.Name
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = defaults.NumWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}

	return &pool{
		config:   config,
		logger:   logger,
		taskChan: make(chan Task, config.QueueSize),
	}
}

// Start initializes the worker pool with N workers.
func (p *pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	if p.stopped {
		return fmt.Errorf("worker pool already stopped")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel
	p.started = true

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(workerCtx, i)
	}

	p.logger.Info(ctx, fmt.Sprintf("Started %d workers for %s pool", p.config.NumWorkers, p.config.Name))
	return nil
}

// Submit adds a task to the queue.
func (p *pool) Submit(ctx context.Context, task Task) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.draining || p.stopped {
		p.mu.Unlock()
		return ErrPoolShuttingDown
	}
	// Sending under the lock keeps Drain from closing the channel mid-send; the
	// queue is buffered so this only blocks when it is full.
	defer p.mu.Unlock()

	select {
	case p.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain stops accepting new tasks and waits for in-flight tasks to complete.
func (p *pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.draining || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.draining = true
	close(p.taskChan)
	p.mu.Unlock()

	p.logger.Info(ctx, fmt.Sprintf("Draining %s pool", p.config.Name))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	drainCtx, cancel := context.WithTimeout(ctx, p.config.DrainTimeout)
	defer cancel()

	select {
	case <-done:
		p.logger.Info(ctx, fmt.Sprintf("Successfully drained %s pool", p.config.Name))
		p.Stop()
		return nil
	case <-drainCtx.Done():
		p.logger.Warn(ctx, fmt.Sprintf("Drain timeout exceeded for %s pool, forcing shutdown", p.config.Name))
		p.Stop()
		<-done
		return fmt.Errorf("drain timeout exceeded")
	}
}

// Stop immediately cancels all workers.
func (p *pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true

	if p.cancelFn != nil {
		p.cancelFn()
	}
	if !p.draining {
		close(p.taskChan)
	}
}

// worker is the main worker loop that runs tasks from the queue.
func (p *pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	workerCtx := observability.WithFields(ctx,
		observability.Field{Key: "worker_id", Value: workerID},
		observability.Field{Key: "pool", Value: p.config.Name},
	)

	for {
		select {
		case <-ctx.Done():
			p.drainCancelled(workerCtx)
			return

		case task, ok := <-p.taskChan:
			if !ok {
				return
			}
			p.run(workerCtx, task)
		}
	}
}

// drainCancelled hands queued tasks a cancelled context so they can record that
// they never ran.
func (p *pool) drainCancelled(ctx context.Context) {
	for task := range p.taskChan {
		p.run(ctx, task)
	}
}

func (p *pool) run(ctx context.Context, task Task) {
	taskCtx := observability.WithFields(ctx, observability.Field{Key: "task_id", Value: task.ID()})

	err := task.Run(taskCtx)
	if err != nil {
		p.logger.Error(taskCtx, "task failed", err)
	} else {
		p.logger.Debug(taskCtx, "task finished")
	}

	if p.config.OnResult != nil {
		p.config.OnResult(TaskResult{TaskID: task.ID(), Error: err})
	}
}
