package jobs

import (
	"context"
	"fmt"
	"time"

	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/observability"

	"github.com/hibiken/asynq"
)

// Client handles enqueueing background jobs
type Client struct {
	client *asynq.Client
	logger *observability.Logger
	now    func() time.Time
}

// NewClient creates a new job client
func NewClient(redisOpt asynq.RedisConnOpt, logger *observability.Logger) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		logger: logger,
		now:    time.Now,
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueCRMSync enqueues a CRM pull and returns the task id. Workers report import
// progress under that id.
func (c *Client) EnqueueCRMSync(ctx context.Context, connector crm.ConnectorConfig) (string, error) {
	task, err := NewCRMSyncTask(CRMSyncJobPayload{Connector: connector, RequestedAt: c.now().UTC()})
	if err != nil {
		c.logger.Error(ctx, "failed to create crm sync task", err)
		return "", fmt.Errorf("failed to create crm sync task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error(ctx, "failed to enqueue crm sync task", err)
		return "", fmt.Errorf("failed to enqueue crm sync task: %w", err)
	}

	c.logger.Info(ctx, fmt.Sprintf("enqueued crm sync task: %s (queue: %s)", info.ID, info.Queue))
	return info.ID, nil
}
