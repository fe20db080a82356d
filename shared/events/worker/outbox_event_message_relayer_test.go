package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOutboxEventRepository struct {
	mock.Mock
}

func (m *MockOutboxEventRepository) GetUnpublishedOutboxEvents(ctx context.Context, limit int32) ([]events.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]events.OutboxEvent), args.Error(1)
}

func (m *MockOutboxEventRepository) MarkOutboxEventPublished(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

func TestProcessEvents(t *testing.T) {
	testEvent := events.OutboxEvent{
		ID:         "test-event-id",
		RoutingKey: events.OrderPlacedRoutingKey,
		Payload:    []byte(`{"order_id":"test-order"}`),
	}

	t.Run("SuccessPath", func(t *testing.T) {
		mockRepo := new(MockOutboxEventRepository)
		mockPublisher := new(MockPublisher)
		relayer := NewOutboxEventMessageRelayer(logs.NewSlogLogger(), mockPublisher, mockRepo, 0, 10)

		outboxEvents := []events.OutboxEvent{testEvent}
		mockRepo.On("GetUnpublishedOutboxEvents", mock.Anything, int32(10)).Return(outboxEvents, nil).Once()
		mockPublisher.On("Publish", mock.Anything, testEvent.RoutingKey, testEvent.Payload).Return(nil).Once()
		mockRepo.On("MarkOutboxEventPublished", mock.Anything, testEvent.ID).Return(nil).Once()

		err := relayer.processEvents(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("PublisherError", func(t *testing.T) {
		mockRepo := new(MockOutboxEventRepository)
		mockPublisher := new(MockPublisher)
		relayer := NewOutboxEventMessageRelayer(logs.NewSlogLogger(), mockPublisher, mockRepo, 0, 10)

		outboxEvents := []events.OutboxEvent{testEvent}
		mockRepo.On("GetUnpublishedOutboxEvents", mock.Anything, int32(10)).Return(outboxEvents, nil).Once()
		mockPublisher.On("Publish", mock.Anything, testEvent.RoutingKey, testEvent.Payload).Return(errors.New("publish error")).Once()

		err := relayer.processEvents(context.Background())

		// The row stays unpublished and is retried on the next tick.
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("MarkPublishedError", func(t *testing.T) {
		mockRepo := new(MockOutboxEventRepository)
		mockPublisher := new(MockPublisher)
		relayer := NewOutboxEventMessageRelayer(logs.NewSlogLogger(), mockPublisher, mockRepo, 0, 10)

		outboxEvents := []events.OutboxEvent{testEvent}
		mockRepo.On("GetUnpublishedOutboxEvents", mock.Anything, int32(10)).Return(outboxEvents, nil).Once()
		mockPublisher.On("Publish", mock.Anything, testEvent.RoutingKey, testEvent.Payload).Return(nil).Once()
		mockRepo.On("MarkOutboxEventPublished", mock.Anything, testEvent.ID).Return(errors.New("update status error")).Once()

		err := relayer.processEvents(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("NoEvents", func(t *testing.T) {
		mockRepo := new(MockOutboxEventRepository)
		mockPublisher := new(MockPublisher)
		relayer := NewOutboxEventMessageRelayer(logs.NewSlogLogger(), mockPublisher, mockRepo, 0, 10)

		mockRepo.On("GetUnpublishedOutboxEvents", mock.Anything, int32(10)).Return([]events.OutboxEvent{}, nil).Once()

		err := relayer.processEvents(context.Background())

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})
}
