package jobs

import (
	"encoding/json"
	"time"

	"voiceagent-server/internal/clients/crm"

	"github.com/hibiken/asynq"
)

// Job type constants
const (
	TypeCRMSync = "contacts:crm_sync"
)

// Queue names
const (
	QueueHigh   = "high"
	QueueMedium = "medium"
	QueueLow    = "low"
)

const crmSyncTimeout = 30 * time.Minute

// CRMSyncJobPayload asks a worker to pull customers from a dealership CRM into the
// contact store.
type CRMSyncJobPayload struct {
	Connector   crm.ConnectorConfig `json:"connector"`
	RequestedAt time.Time           `json:"requested_at"`
}

// NewCRMSyncTask creates a new CRM sync task
func NewCRMSyncTask(payload CRMSyncJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCRMSync, data,
		asynq.Queue(QueueMedium),
		asynq.MaxRetry(3),
		asynq.Timeout(crmSyncTimeout),
	), nil
}

// ParseCRMSyncPayload decodes the payload of a TypeCRMSync task
func ParseCRMSyncPayload(task *asynq.Task) (CRMSyncJobPayload, error) {
	var payload CRMSyncJobPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
