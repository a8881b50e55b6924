package jobs

import (
	"context"
	"fmt"
	"time"

	"voiceagent-server/internal/observability"
)

const defaultRefreshInterval = 5 * time.Minute

// Refresher reloads the in-memory contact store from persistence
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// ContactRefreshJob picks up contacts written by background CRM syncs, which run in
// the worker process and only reach the database.
type ContactRefreshJob struct {
	refresher Refresher
	logger    *observability.Logger
	interval  time.Duration
}

// NewContactRefreshJob creates a new contact refresh job
func NewContactRefreshJob(refresher Refresher, logger *observability.Logger, interval time.Duration) *ContactRefreshJob {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &ContactRefreshJob{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
	}
}

func (j *ContactRefreshJob) Name() string {
	return "contact_refresh"
}

func (j *ContactRefreshJob) Schedule() time.Duration {
	return j.interval
}

// Run reloads contacts once
func (j *ContactRefreshJob) Run(ctx context.Context) error {
	count, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh contacts: %w", err)
	}
	j.logger.Debug(ctx, fmt.Sprintf("refreshed %d contacts", count))
	return nil
}
