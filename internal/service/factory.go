package service

import (
	"context"

	"github.com/facturo/facturo/internal/cache"
	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	"github.com/facturo/facturo/internal/domain/sequence"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	SequenceRepo sequence.Repository
	DocumentRepo document.Repository
	PaymentRepo  payment.Repository

	// Publishers
	EventPublisher publisher.EventPublisher

	Cache cache.Cache
}

// NewServiceParams creates a new ServiceParams struct
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sequenceRepo sequence.Repository,
	documentRepo document.Repository,
	paymentRepo payment.Repository,
	eventPublisher publisher.EventPublisher,
	cache cache.Cache,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		DB:             db,
		SequenceRepo:   sequenceRepo,
		DocumentRepo:   documentRepo,
		PaymentRepo:    paymentRepo,
		EventPublisher: eventPublisher,
		Cache:          cache,
	}
}

// publishEvent emits an audit event. Failures are logged and never returned
// to the caller.
func (p ServiceParams) publishEvent(ctx context.Context, ev *publisher.Event) {
	if p.EventPublisher == nil {
		return
	}
	// a cancelled request must not drop the audit record of work already done
	if err := p.EventPublisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		p.Logger.Errorw("failed to publish event",
			"event_name", ev.EventName,
			"entity_id", ev.EntityID,
			"error", err,
		)
	}
}
