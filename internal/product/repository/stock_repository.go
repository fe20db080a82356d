package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/s223973381/ishika-sit722/shared/events"
)

// DBPool is the connection surface the stock repository needs: plain queries
// plus the ability to open transactions. *pgxpool.Pool satisfies it.
type DBPool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type DeductionStatus string

const (
	// DeductionApplied: every line item was decremented and committed atomically.
	DeductionApplied DeductionStatus = "APPLIED"
	// DeductionFailed: at least one item was missing or short on stock; no
	// stock changed.
	DeductionFailed DeductionStatus = "FAILED"
	// DeductionDuplicate: this order id was already processed; nothing was done.
	DeductionDuplicate DeductionStatus = "DUPLICATE"
)

type DeductionResult struct {
	Status DeductionStatus
	Reason string
}

var errInsufficientStock = errors.New("insufficient stock")

// StockDeductionRepository applies an order's stock deduction as a single
// atomic unit and records the outcome (processed-event marker plus result
// outbox row) durably before the caller acknowledges the message.
type StockDeductionRepository struct {
	*Queries
	db DBPool
}

func NewStockDeductionRepository(db DBPool) *StockDeductionRepository {
	return &StockDeductionRepository{
		db:      db,
		Queries: New(db),
	}
}

func (r *StockDeductionRepository) execTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(r.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeductStockForOrder walks the event's items in payload order and decrements
// each product's stock with a compare-and-decrement update. The first item
// that misses aborts the whole batch: the transaction rolls back, so no
// partial deduction survives, and the failure outcome is recorded in a second
// transaction. On success the decrements, the processed-event marker, and the
// success outbox row commit together.
func (r *StockDeductionRepository) DeductStockForOrder(ctx context.Context, event *events.OrderPlacedEvent) (DeductionResult, error) {
	orderUUID, err := parseOrderID(event.OrderID)
	if err != nil {
		return DeductionResult{}, fmt.Errorf("invalid order id %q: %w", event.OrderID, err)
	}

	processed, err := r.isOrderProcessed(ctx, orderUUID)
	if err != nil {
		return DeductionResult{}, err
	}
	if processed {
		return DeductionResult{Status: DeductionDuplicate}, nil
	}

	var failReason string
	err = r.execTx(ctx, func(q *Queries) error {
		for _, item := range event.Items {
			var productUUID pgtype.UUID
			if err := productUUID.Scan(item.ProductID); err != nil {
				failReason = fmt.Sprintf("invalid product id %q", item.ProductID)
				return errInsufficientStock
			}

			rowsAffected, err := q.DeductProductStock(ctx, DeductProductStockParams{
				ID:       productUUID,
				Quantity: item.Quantity,
			})
			if err != nil {
				return err
			}
			if rowsAffected != 1 {
				failReason = fmt.Sprintf("product %s missing or has insufficient stock", item.ProductID)
				return errInsufficientStock
			}
		}

		return r.recordOutcome(ctx, q, orderUUID, event.OrderID, true, "")
	})

	if err == nil {
		return DeductionResult{Status: DeductionApplied}, nil
	}
	if !errors.Is(err, errInsufficientStock) {
		return DeductionResult{}, err
	}

	// The deduction transaction rolled back; record the failure outcome in
	// its own transaction so the compensating event survives a crash.
	err = r.execTx(ctx, func(q *Queries) error {
		return r.recordOutcome(ctx, q, orderUUID, event.OrderID, false, failReason)
	})
	if err != nil {
		return DeductionResult{}, err
	}

	return DeductionResult{Status: DeductionFailed, Reason: failReason}, nil
}

func (r *StockDeductionRepository) recordOutcome(ctx context.Context, q *Queries, orderUUID pgtype.UUID, orderID string, deducted bool, reason string) error {
	if err := q.CreateProcessedEvent(ctx, CreateProcessedEventParams{
		AggregateID: orderUUID,
		EventName:   events.OrderPlacedRoutingKey,
	}); err != nil {
		return err
	}

	routingKey := events.StockDeductedRoutingKey
	var payload []byte
	var err error
	if deducted {
		payload, err = json.Marshal(events.StockDeductedEvent{OrderID: orderID})
	} else {
		routingKey = events.StockDeductionFailedRoutingKey
		payload, err = json.Marshal(events.StockDeductionFailedEvent{OrderID: orderID, Reason: reason})
	}
	if err != nil {
		return err
	}

	return q.CreateOutboxEvent(ctx, CreateOutboxEventParams{
		AggregateID: orderUUID,
		RoutingKey:  routingKey,
		Payload:     payload,
	})
}

func (r *StockDeductionRepository) isOrderProcessed(ctx context.Context, orderUUID pgtype.UUID) (bool, error) {
	id, err := r.GetProcessedEvent(ctx, GetProcessedEventParams{
		AggregateID: orderUUID,
		EventName:   events.OrderPlacedRoutingKey,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return id.Valid, nil
}

func parseOrderID(orderID string) (pgtype.UUID, error) {
	var orderUUID pgtype.UUID
	if err := orderUUID.Scan(orderID); err != nil {
		return pgtype.UUID{}, err
	}
	return orderUUID, nil
}
