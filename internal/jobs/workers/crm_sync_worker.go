package workers

//go:generate go run go.uber.org/mock/mockgen@latest -source=crm_sync_worker.go -destination=mocks_test.go -package=workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/jobs"
	"voiceagent-server/internal/observability"

	"github.com/hibiken/asynq"
)

// Importer runs a CRM pull through the import pipeline
type Importer interface {
	ImportFromCRM(ctx context.Context, cfg crm.ConnectorConfig) (processor.ImportResult, error)
}

// Refresher reloads the worker's contact store from the database
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// CRMSyncWorker handles CRM sync jobs
type CRMSyncWorker struct {
	importer  Importer
	refresher Refresher
	logger    *observability.Logger

	// one sync at a time, so duplicate detection sees the previous sync's contacts
	mu sync.Mutex
}

// NewCRMSyncWorker creates a new CRM sync worker. refresher may be nil.
func NewCRMSyncWorker(importer Importer, refresher Refresher, logger *observability.Logger) *CRMSyncWorker {
	return &CRMSyncWorker{
		importer:  importer,
		refresher: refresher,
		logger:    logger,
	}
}

// ProcessCRMSyncTask pulls the configured CRM into the contact store. Progress is
// reported under the asynq task id so clients holding the id from the enqueue call can
// follow it.
func (w *CRMSyncWorker) ProcessCRMSyncTask(ctx context.Context, task *asynq.Task) error {
	payload, err := jobs.ParseCRMSyncPayload(task)
	if err != nil {
		w.logger.Error(ctx, "failed to unmarshal crm sync job payload", err)
		return fmt.Errorf("failed to unmarshal crm sync job payload: %w: %w", err, asynq.SkipRetry)
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "crm_provider", Value: string(payload.Connector.Provider)},
		observability.Field{Key: "dealer_id", Value: payload.Connector.DealerID},
	)
	if id, ok := asynq.GetTaskID(ctx); ok {
		ctx = processor.WithJobID(ctx, id)
		ctx = observability.WithFields(ctx, observability.Field{Key: "job_id", Value: id})
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Contacts may have been added through the API since the last sync
	if w.refresher != nil {
		if _, err := w.refresher.Refresh(ctx); err != nil {
			w.logger.Error(ctx, "failed to reload contacts before crm sync", err)
			return fmt.Errorf("failed to reload contacts: %w", err)
		}
	}

	result, err := w.importer.ImportFromCRM(ctx, payload.Connector)
	if err != nil {
		w.logger.Error(ctx, "crm sync failed", err)
		if errors.Is(err, processor.ErrInvalidConnector) || errors.Is(err, processor.ErrCRMDisabled) {
			return fmt.Errorf("crm sync failed: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("crm sync failed: %w", err)
	}

	w.logger.Info(ctx, fmt.Sprintf("crm sync imported %d contacts, rejected %d", len(result.Accepted), len(result.Rejected)))
	return nil
}
