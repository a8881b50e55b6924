package consumers

import (
	"context"
	"fmt"

	"voiceagent-server/internal/clients/kafka"
	"voiceagent-server/internal/events"
	importProcessor "voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/observability"
)

type eventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, kafka.EventMessage) error) error
}

// Refresher reloads the in-memory contact store from the database
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// JobLookup finds imports run by this process
type JobLookup interface {
	Job(id string) (importProcessor.Job, error)
}

// ContactsConsumer refreshes the API's contact store when another process (the
// background worker or a second API instance) imports contacts.
type ContactsConsumer struct {
	source    eventSource
	refresher Refresher
	jobs      JobLookup
	logger    *observability.Logger
}

// NewContactsConsumer creates a new ContactsConsumer
func NewContactsConsumer(source eventSource, refresher Refresher, jobs JobLookup, logger *observability.Logger) *ContactsConsumer {
	return &ContactsConsumer{
		source:    source,
		refresher: refresher,
		jobs:      jobs,
		logger:    logger,
	}
}

// Start consumes events until ctx is cancelled
func (c *ContactsConsumer) Start(ctx context.Context) error {
	c.logger.Info(ctx, "Starting contacts consumer")
	return c.source.ConsumeEvents(ctx, c.handleEvent)
}

func (c *ContactsConsumer) handleEvent(ctx context.Context, event kafka.EventMessage) error {
	if event.Type != events.TypeContactsImported {
		return nil
	}

	// JSON numbers decode as float64
	if accepted, ok := event.Data["accepted"].(float64); ok && accepted == 0 {
		return nil
	}
	if jobID, _ := event.Data["job_id"].(string); jobID != "" && c.jobs != nil {
		if _, err := c.jobs.Job(jobID); err == nil {
			// Our own import already merged into the store
			return nil
		}
	}

	count, err := c.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh contacts: %w", err)
	}
	c.logger.Info(ctx, fmt.Sprintf("refreshed %d contacts after remote import", count))
	return nil
}
