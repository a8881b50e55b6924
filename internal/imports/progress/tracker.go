// Package progress records and streams import progress events.
package progress

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownJob = errors.New("unknown import job")

// Status of an import job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further events follow.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Event is one progress update. Percent only ever increases within a job.
type Event struct {
	JobID     string    `json:"job_id"`
	Source    string    `json:"source"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Stage     string    `json:"stage"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker stores the latest event per job and fans events out to subscribers.
type Tracker interface {
	Report(ctx context.Context, event Event) error
	Latest(ctx context.Context, jobID string) (Event, error)
	// Subscribe streams events for jobID until the job reaches a terminal status or
	// ctx is done. The channel is closed when the stream ends.
	Subscribe(ctx context.Context, jobID string) (<-chan Event, error)
}
