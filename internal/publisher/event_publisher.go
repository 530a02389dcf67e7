package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/facturo/facturo/internal/config"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/pubsub"
	"github.com/facturo/facturo/internal/types"
)

// Event is the audit envelope written for every sequence, payment and
// document mutation
type Event struct {
	ID         string                `json:"id"`
	EventName  types.FiscalEventName `json:"event_name"`
	TenantID   string                `json:"tenant_id"`
	UserID     string                `json:"user_id,omitempty"`
	RequestID  string                `json:"request_id,omitempty"`
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Timestamp  time.Time             `json:"timestamp"`
	Payload    map[string]any        `json:"payload,omitempty"`
}

// NewEvent fills the envelope from the tenant, user and request ids in ctx
func NewEvent(ctx context.Context, name types.FiscalEventName, entityType, entityID string, payload map[string]any) *Event {
	return &Event{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		EventName:  name,
		TenantID:   types.GetTenantID(ctx),
		UserID:     types.GetUserID(ctx),
		RequestID:  types.GetRequestID(ctx),
		EntityType: entityType,
		EntityID:   entityID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// EventPublisher emits audit events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

type eventPublisher struct {
	pubSub pubsub.Publisher
	topic  string
	logger *logger.Logger
}

// NewEventPublisher publishes onto the configured topic. A nil pubsub or
// disabled events yield a publisher that only logs.
func NewEventPublisher(cfg *config.Configuration, pubSub pubsub.PubSub, logger *logger.Logger) EventPublisher {
	if !cfg.Event.Enabled || pubSub == nil {
		return &noopPublisher{logger: logger}
	}
	return &eventPublisher{
		pubSub: pubSub,
		topic:  cfg.Event.Topic,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal event").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", event.EventName.String())

	p.logger.Debugw("publishing event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"entity_id", event.EntityID,
		"tenant_id", event.TenantID,
	)

	if err := p.pubSub.Publish(ctx, p.topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish event").
			WithReportableDetails(map[string]any{
				"event_name": event.EventName,
				"entity_id":  event.EntityID,
			}).
			Mark(ierr.ErrSystem)
	}
	return nil
}

type noopPublisher struct {
	logger *logger.Logger
}

func (p *noopPublisher) Publish(_ context.Context, event *Event) error {
	p.logger.Debugw("event publishing disabled, dropping event",
		"event_name", event.EventName,
		"entity_id", event.EntityID,
	)
	return nil
}
