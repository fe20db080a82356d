package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	orderIDTest    = "3f1f9b9e-9d52-4c52-8a3d-0f0c2ab61d42"
	productIDTest  = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	productID2Test = "b1ffcd88-8b1a-3de7-aa5c-5aa8ac270b22"
)

func mustPgUUID(t *testing.T, value string) pgtype.UUID {
	t.Helper()
	var uid pgtype.UUID
	if err := uid.Scan(value); err != nil {
		t.Fatalf("invalid test uuid %q: %v", value, err)
	}
	return uid
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return payload
}

func newStockRepo(t *testing.T) (*StockDeductionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewStockDeductionRepository(mockPool), mockPool
}

func TestDeductStockForOrder(t *testing.T) {
	orderUUID := mustPgUUID(t, orderIDTest)
	event := &events.OrderPlacedEvent{
		OrderID: orderIDTest,
		Items: []events.OrderItem{
			{ProductID: productIDTest, Quantity: 2},
			{ProductID: productID2Test, Quantity: 5},
		},
	}

	t.Run("SufficientStockCommitsDecrementsAndSuccessOutcome", func(t *testing.T) {
		repo, mockPool := newStockRepo(t)

		mockPool.ExpectQuery("SELECT id FROM processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnError(pgx.ErrNoRows)

		mockPool.ExpectBegin()
		mockPool.ExpectExec("UPDATE products").
			WithArgs(mustPgUUID(t, productIDTest), int32(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec("UPDATE products").
			WithArgs(mustPgUUID(t, productID2Test), int32(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec("INSERT INTO processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO outbox_events").
			WithArgs(orderUUID, events.StockDeductedRoutingKey, mustMarshal(t, events.StockDeductedEvent{OrderID: orderIDTest})).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		result, err := repo.DeductStockForOrder(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, DeductionApplied, result.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("FirstShortItemRollsBackAndRecordsFailureOutcome", func(t *testing.T) {
		repo, mockPool := newStockRepo(t)

		mockPool.ExpectQuery("SELECT id FROM processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnError(pgx.ErrNoRows)

		// First item decrements, second misses the stock guard; the whole
		// transaction rolls back so the first decrement does not survive.
		mockPool.ExpectBegin()
		mockPool.ExpectExec("UPDATE products").
			WithArgs(mustPgUUID(t, productIDTest), int32(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec("UPDATE products").
			WithArgs(mustPgUUID(t, productID2Test), int32(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectRollback()

		failurePayload := mustMarshal(t, events.StockDeductionFailedEvent{
			OrderID: orderIDTest,
			Reason:  "product " + productID2Test + " missing or has insufficient stock",
		})

		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO outbox_events").
			WithArgs(orderUUID, events.StockDeductionFailedRoutingKey, failurePayload).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		result, err := repo.DeductStockForOrder(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, DeductionFailed, result.Status)
		assert.Contains(t, result.Reason, productID2Test)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateOrderShortCircuitsWithoutDeducting", func(t *testing.T) {
		repo, mockPool := newStockRepo(t)

		mockPool.ExpectQuery("SELECT id FROM processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(orderUUID))

		result, err := repo.DeductStockForOrder(context.Background(), event)

		require.NoError(t, err)
		assert.Equal(t, DeductionDuplicate, result.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DeductionQueryErrorSurfaces", func(t *testing.T) {
		repo, mockPool := newStockRepo(t)

		mockPool.ExpectQuery("SELECT id FROM processed_events").
			WithArgs(orderUUID, events.OrderPlacedRoutingKey).
			WillReturnError(pgx.ErrNoRows)

		mockPool.ExpectBegin()
		mockPool.ExpectExec("UPDATE products").
			WithArgs(mustPgUUID(t, productIDTest), int32(2)).
			WillReturnError(assert.AnError)
		mockPool.ExpectRollback()

		_, err := repo.DeductStockForOrder(context.Background(), event)

		assert.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
