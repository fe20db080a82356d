package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/s223973381/ishika-sit722/internal/product/repository"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/rabbitmq"
)

const (
	queueName    string = "product_stock_deduction_queue"
	consumerName string = "product_stock_deduction_consumer"
)

type StockDeductionRepository interface {
	DeductStockForOrder(ctx context.Context, event *events.OrderPlacedEvent) (repository.DeductionResult, error)
}

type MessageSubscriber interface {
	Subscribe(ctx context.Context, opts rabbitmq.SubscribeOptions) error
}

type ProductCache interface {
	Invalidate(ctx context.Context, productIDs ...string)
}

// OrderPlacedConsumer drives the stock-reservation saga on the product side.
// A delivery is acknowledged only after its outcome, the atomic deduction or
// the compensating failure, has been committed together with the result
// outbox row. A crash before that point leaves the message unacked and the
// broker redelivers it; the processed-events marker makes the redelivery a
// no-op.
type OrderPlacedConsumer struct {
	logger     logs.Logger
	subscriber MessageSubscriber
	repo       StockDeductionRepository
	cache      ProductCache
}

func NewOrderPlacedConsumer(logger logs.Logger, subscriber MessageSubscriber, repo StockDeductionRepository, cache ProductCache) *OrderPlacedConsumer {
	return &OrderPlacedConsumer{
		logger:     logger,
		subscriber: subscriber,
		repo:       repo,
		cache:      cache,
	}
}

func (opc *OrderPlacedConsumer) Start(ctx context.Context) error {
	return opc.subscriber.Subscribe(ctx, rabbitmq.SubscribeOptions{
		Exchange:     events.ExchangeName,
		ExchangeType: rabbitmq.ExchangeDirect,
		QueueName:    queueName,
		ConsumerTag:  consumerName,
		BindingKeys:  []string{events.OrderPlacedRoutingKey},
		Handler:      opc.handleOrderPlacedEvent,
	})
}

func (opc *OrderPlacedConsumer) handleOrderPlacedEvent(ctx context.Context, d amqp091.Delivery) {
	event, err := opc.unmarshalEvent(d.Body)
	if err != nil {
		opc.logger.Error("failed to unmarshal OrderPlacedEvent, dead-lettering", "error", err, "messageId", d.MessageId)
		d.Nack(false, false)
		return
	}

	if err := validateOrderPlacedEvent(event); err != nil {
		opc.logger.Error("invalid OrderPlacedEvent, dead-lettering", "error", err, "orderId", event.OrderID, "messageId", d.MessageId)
		d.Nack(false, false)
		return
	}

	opc.logger.Debug("received OrderPlacedEvent", "orderId", event.OrderID, "itemsCount", len(event.Items))

	result, err := opc.repo.DeductStockForOrder(ctx, event)
	if err != nil {
		opc.logger.Error("failed to process stock deduction, requeueing", "error", err, "orderId", event.OrderID)
		d.Nack(false, true)
		return
	}

	switch result.Status {
	case repository.DeductionDuplicate:
		opc.logger.Info("order already processed, acknowledging without reprocessing", "orderId", event.OrderID)
	case repository.DeductionApplied:
		opc.logger.Info("stock deducted for order", "orderId", event.OrderID, "itemsCount", len(event.Items))
		go opc.invalidateCacheForOrderItems(event.Items)
	case repository.DeductionFailed:
		opc.logger.Warn("stock deduction failed for order", "orderId", event.OrderID, "reason", result.Reason)
	}

	d.Ack(false)
}

// validateOrderPlacedEvent rejects payloads that decode but can never be
// processed: retrying them would loop forever, so the handler dead-letters
// them instead of requeueing. A non-positive quantity must never reach the
// compare-and-decrement update, where it would pass the stock guard and
// increase stock.
func validateOrderPlacedEvent(event *events.OrderPlacedEvent) error {
	if err := uuid.Validate(event.OrderID); err != nil {
		return fmt.Errorf("order id %q is not a UUID: %w", event.OrderID, err)
	}

	for _, item := range event.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %q has non-positive quantity %d", item.ProductID, item.Quantity)
		}
	}

	return nil
}

func (opc *OrderPlacedConsumer) unmarshalEvent(body []byte) (*events.OrderPlacedEvent, error) {
	var event events.OrderPlacedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (opc *OrderPlacedConsumer) invalidateCacheForOrderItems(items []events.OrderItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	productIDs := make([]string, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}

	opc.cache.Invalidate(ctx, productIDs...)
}
