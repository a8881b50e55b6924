package events

import (
	"context"
	"time"

	"voiceagent-server/internal/clients/kafka"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"github.com/google/uuid"
)

const (
	TypeTargetListSaved          = "target_list.saved"
	TypeTargetListDeleted        = "target_list.deleted"
	TypeCampaignTargetsRequested = "campaign.targets_requested"
	TypeContactsImported         = "contacts.imported"
)

type eventProducer interface {
	PublishEvent(ctx context.Context, event kafka.EventMessage) error
}

// Publisher handles publishing target list events to Kafka. Publishing is best effort:
// failures are logged and never returned to the caller's user action.
type Publisher struct {
	producer eventProducer
	logger   *observability.Logger
	now      func() time.Time
}

// NewPublisher creates a new event publisher. A nil producer disables publishing.
func NewPublisher(producer *kafka.Producer, logger *observability.Logger) *Publisher {
	p := &Publisher{logger: logger, now: time.Now}
	if producer != nil {
		p.producer = producer
	}
	return p
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, data map[string]interface{}) {
	if p == nil || p.producer == nil {
		return
	}
	event := kafka.EventMessage{
		ID:        uuid.New().String(),
		Type:      eventType,
		Key:       key,
		Data:      data,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}
	if err := p.producer.PublishEvent(ctx, event); err != nil {
		p.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "error", Value: err.Error()}),
			"dropping "+eventType+" event")
	}
}

// PublishListSaved publishes a target_list.saved event
func (p *Publisher) PublishListSaved(ctx context.Context, list targeting.SavedList) {
	p.publish(ctx, TypeTargetListSaved, list.ID, map[string]interface{}{
		"list_id":       list.ID,
		"name":          list.Name,
		"filters":       list.Filters,
		"contact_ids":   list.ContactIDs,
		"contact_count": len(list.ContactIDs),
	})
}

// PublishListDeleted publishes a target_list.deleted event
func (p *Publisher) PublishListDeleted(ctx context.Context, listID string) {
	p.publish(ctx, TypeTargetListDeleted, listID, map[string]interface{}{
		"list_id": listID,
	})
}

// PublishCampaignTargetsRequested hands the resolved targets to the campaign module.
func (p *Publisher) PublishCampaignTargetsRequested(ctx context.Context, listID string, contactIDs []string) {
	key := listID
	if key == "" {
		key = "selection"
	}
	p.publish(ctx, TypeCampaignTargetsRequested, key, map[string]interface{}{
		"list_id":       listID,
		"contact_ids":   contactIDs,
		"contact_count": len(contactIDs),
	})
}

// PublishContactsImported reports the outcome of an import batch.
func (p *Publisher) PublishContactsImported(ctx context.Context, jobID, source string, accepted, rejected int) {
	p.publish(ctx, TypeContactsImported, jobID, map[string]interface{}{
		"job_id":   jobID,
		"source":   source,
		"accepted": accepted,
		"rejected": rejected,
	})
}
