package consumers

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rabbitmq/amqp091-go"
	"github.com/s223973381/ishika-sit722/internal/order/repository"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/rabbitmq"
)

const (
	queueName    string = "order_stock_result_queue"
	consumerName string = "order_stock_result_consumer"
)

type OrderStatusUpdater interface {
	TransitionOrderFromPending(ctx context.Context, arg repository.TransitionOrderFromPendingParams) (int64, error)
}

type MessageSubscriber interface {
	Subscribe(ctx context.Context, opts rabbitmq.SubscribeOptions) error
}

// StockResultConsumer closes the stock-reservation saga on the order side:
// a deduction success confirms the order, a deduction failure cancels it.
// Only PENDING orders transition, so a redelivered result never flips an
// order that was already settled.
type StockResultConsumer struct {
	logger     logs.Logger
	subscriber MessageSubscriber
	repo       OrderStatusUpdater
}

func NewStockResultConsumer(logger logs.Logger, subscriber MessageSubscriber, repo OrderStatusUpdater) *StockResultConsumer {
	return &StockResultConsumer{
		logger:     logger,
		subscriber: subscriber,
		repo:       repo,
	}
}

func (src *StockResultConsumer) Start(ctx context.Context) error {
	return src.subscriber.Subscribe(ctx, rabbitmq.SubscribeOptions{
		Exchange:     events.ExchangeName,
		ExchangeType: rabbitmq.ExchangeDirect,
		QueueName:    queueName,
		ConsumerTag:  consumerName,
		BindingKeys: []string{
			events.StockDeductedRoutingKey,
			events.StockDeductionFailedRoutingKey,
		},
		Handler: src.handleStockResultEvent,
	})
}

func (src *StockResultConsumer) handleStockResultEvent(ctx context.Context, d amqp091.Delivery) {
	orderID, status, reason, err := src.resolveTransition(d)
	if err != nil {
		src.logger.Error("failed to parse stock result event, dead-lettering", "error", err, "routingKey", d.RoutingKey, "messageId", d.MessageId)
		d.Nack(false, false)
		return
	}

	var orderUUID pgtype.UUID
	if err := orderUUID.Scan(orderID); err != nil {
		src.logger.Error("stock result event carries invalid order id, dead-lettering", "error", err, "orderId", orderID)
		d.Nack(false, false)
		return
	}

	rowsAffected, err := src.repo.TransitionOrderFromPending(ctx, repository.TransitionOrderFromPendingParams{
		ID:     orderUUID,
		Status: status,
	})
	if err != nil {
		src.logger.Error("failed to update order status, requeueing", "error", err, "orderId", orderID)
		d.Nack(false, true)
		return
	}

	if rowsAffected == 0 {
		src.logger.Info("order not pending, acknowledging without transition", "orderId", orderID, "status", status)
	} else if status == repository.OrderStatusCancelled {
		src.logger.Warn("order cancelled after stock deduction failure", "orderId", orderID, "reason", reason)
	} else {
		src.logger.Info("order confirmed after stock deduction", "orderId", orderID)
	}

	d.Ack(false)
}

func (src *StockResultConsumer) resolveTransition(d amqp091.Delivery) (orderID, status, reason string, err error) {
	switch d.RoutingKey {
	case events.StockDeductedRoutingKey:
		var event events.StockDeductedEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			return "", "", "", err
		}
		return event.OrderID, repository.OrderStatusConfirmed, "", nil
	default:
		var event events.StockDeductionFailedEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			return "", "", "", err
		}
		return event.OrderID, repository.OrderStatusCancelled, event.Reason, nil
	}
}
