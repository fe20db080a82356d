package worker

import (
	"context"
	"time"

	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/logs"
)

type OutboxEventRepository interface {
	GetUnpublishedOutboxEvents(ctx context.Context, limit int32) ([]events.OutboxEvent, error)
	MarkOutboxEventPublished(ctx context.Context, eventID string) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// OutboxEventMessageRelayer closes the commit-then-notify gap: committed
// events sit in the outbox table until a publish succeeds, so a broker outage
// delays delivery instead of dropping it. A row is marked published only
// after the broker accepted the message, which means a crash between publish
// and mark can produce a duplicate; consumers dedupe on order id.
type OutboxEventMessageRelayer struct {
	logger       logs.Logger
	publisher    Publisher
	repo         OutboxEventRepository
	pollInterval time.Duration
	batchSize    int32
}

func NewOutboxEventMessageRelayer(
	logger logs.Logger,
	publisher Publisher,
	repo OutboxEventRepository,
	pollInterval time.Duration,
	batchSize int32,
) *OutboxEventMessageRelayer {
	return &OutboxEventMessageRelayer{
		logger:       logger,
		publisher:    publisher,
		repo:         repo,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (oemr *OutboxEventMessageRelayer) Start(ctx context.Context) {
	oemr.logger.Info("starting outbox event message relayer worker")
	ticker := time.NewTicker(oemr.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := oemr.processEvents(ctx); err != nil {
				oemr.logger.Error("error processing outbox events", "error", err)
			}
		case <-ctx.Done():
			oemr.logger.Info("stopping outbox event message relayer worker")
			return
		}
	}
}

func (oemr *OutboxEventMessageRelayer) processEvents(ctx context.Context) error {
	outboxEvents, err := oemr.repo.GetUnpublishedOutboxEvents(ctx, oemr.batchSize)
	if err != nil {
		return err
	}

	for _, event := range outboxEvents {
		if err := oemr.publisher.Publish(ctx, event.RoutingKey, event.Payload); err != nil {
			oemr.logger.Error("failed to publish outbox event", "eventID", event.ID, "routingKey", event.RoutingKey, "error", err)
			continue
		}

		if err := oemr.repo.MarkOutboxEventPublished(ctx, event.ID); err != nil {
			oemr.logger.Error("failed to mark outbox event as published", "eventID", event.ID, "error", err)
			continue
		}

		oemr.logger.Info("successfully relayed outbox event", "eventID", event.ID, "routingKey", event.RoutingKey)
	}

	return nil
}
