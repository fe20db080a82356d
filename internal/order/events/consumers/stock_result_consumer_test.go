package consumers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rabbitmq/amqp091-go"
	"github.com/s223973381/ishika-sit722/internal/order/repository"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOrderStatusUpdater struct {
	mock.Mock
}

func (m *MockOrderStatusUpdater) TransitionOrderFromPending(ctx context.Context, arg repository.TransitionOrderFromPendingParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

// fakeAcknowledger records how the consumer settled the delivery.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func newDelivery(routingKey string, body []byte) (amqp091.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp091.Delivery{Acknowledger: ack, RoutingKey: routingKey, Body: body}, ack
}

func TestHandleStockResultEvent(t *testing.T) {
	logger := logs.NewSlogLogger()
	orderID := "3f1f9b9e-9d52-4c52-8a3d-0f0c2ab61d42"

	var orderUUID pgtype.UUID
	if err := orderUUID.Scan(orderID); err != nil {
		t.Fatalf("invalid test uuid: %v", err)
	}

	t.Run("DeductedConfirmsPendingOrder", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		mockRepo.On("TransitionOrderFromPending", mock.Anything, repository.TransitionOrderFromPendingParams{
			ID:     orderUUID,
			Status: repository.OrderStatusConfirmed,
		}).Return(int64(1), nil).Once()

		body, _ := json.Marshal(events.StockDeductedEvent{OrderID: orderID})
		d, ack := newDelivery(events.StockDeductedRoutingKey, body)
		consumer.handleStockResultEvent(context.Background(), d)

		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DeductionFailedCancelsPendingOrder", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		mockRepo.On("TransitionOrderFromPending", mock.Anything, repository.TransitionOrderFromPendingParams{
			ID:     orderUUID,
			Status: repository.OrderStatusCancelled,
		}).Return(int64(1), nil).Once()

		body, _ := json.Marshal(events.StockDeductionFailedEvent{OrderID: orderID, Reason: "insufficient stock"})
		d, ack := newDelivery(events.StockDeductionFailedRoutingKey, body)
		consumer.handleStockResultEvent(context.Background(), d)

		assert.True(t, ack.acked)
		mockRepo.AssertExpectations(t)
	})

	t.Run("SettledOrderAcksWithoutTransition", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		mockRepo.On("TransitionOrderFromPending", mock.Anything, mock.Anything).
			Return(int64(0), nil).Once()

		body, _ := json.Marshal(events.StockDeductedEvent{OrderID: orderID})
		d, ack := newDelivery(events.StockDeductedRoutingKey, body)
		consumer.handleStockResultEvent(context.Background(), d)

		assert.True(t, ack.acked)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RepositoryErrorRequeues", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		mockRepo.On("TransitionOrderFromPending", mock.Anything, mock.Anything).
			Return(int64(0), assert.AnError).Once()

		body, _ := json.Marshal(events.StockDeductedEvent{OrderID: orderID})
		d, ack := newDelivery(events.StockDeductedRoutingKey, body)
		consumer.handleStockResultEvent(context.Background(), d)

		assert.False(t, ack.acked)
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
		mockRepo.AssertExpectations(t)
	})

	t.Run("MalformedPayloadDeadLetters", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		d, ack := newDelivery(events.StockDeductedRoutingKey, []byte("not json"))
		consumer.handleStockResultEvent(context.Background(), d)

		assert.False(t, ack.acked)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
		mockRepo.AssertNotCalled(t, "TransitionOrderFromPending")
	})

	t.Run("InvalidOrderIDDeadLetters", func(t *testing.T) {
		mockRepo := new(MockOrderStatusUpdater)
		consumer := NewStockResultConsumer(logger, nil, mockRepo)

		body, _ := json.Marshal(events.StockDeductedEvent{OrderID: "not-a-uuid"})
		d, ack := newDelivery(events.StockDeductedRoutingKey, body)
		consumer.handleStockResultEvent(context.Background(), d)

		assert.False(t, ack.acked)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
		mockRepo.AssertNotCalled(t, "TransitionOrderFromPending")
	})
}
