package workers

import (
	"context"
)

// Task is a unit of background work, such as one contact import.
type Task interface {
	// ID identifies the task in logs and results.
	ID() string

	// Run performs the work. It must return promptly once ctx is cancelled.
	Run(ctx context.Context) error
}

// WorkerPool defines the interface for managing a pool of task workers.
type WorkerPool interface {
	// Start initializes the worker pool with N workers.
	Start(ctx context.Context) error

	// Submit queues a task. Blocks if the queue is full.
	Submit(ctx context.Context, task Task) error

	// Drain stops accepting new tasks and waits for queued and in-flight tasks.
	Drain(ctx context.Context) error

	// Stop immediately cancels all workers.
	Stop()
}
