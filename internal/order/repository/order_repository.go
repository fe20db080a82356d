package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/s223973381/ishika-sit722/shared/events"
)

type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

type PlaceOrderItem struct {
	ProductID string
	Quantity  int32
	UnitPrice float64
}

// PostgreSQLOrderRepository writes the order, its line items, and the
// order.placed outbox row in a single transaction, so a committed order
// always carries its event. Publishing is the relayer's job.
type PostgreSQLOrderRepository struct {
	*Queries
	db *pgxpool.Pool
}

func NewPostgreSQLOrderRepository(db *pgxpool.Pool) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db:      db,
		Queries: New(db),
	}
}

func (s *PostgreSQLOrderRepository) execTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	if err := fn(q); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgreSQLOrderRepository) PlaceOrder(ctx context.Context, customerID string, items []PlaceOrderItem) (*OrderWithItems, error) {
	customerUUID, err := mapStringToPgUUID(customerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}

	var totalAmount float64
	for _, item := range items {
		totalAmount += float64(item.Quantity) * item.UnitPrice
	}
	pgTotalAmount, err := mapFloatToPgNumeric(totalAmount)
	if err != nil {
		return nil, err
	}

	var placed *OrderWithItems
	err = s.execTx(ctx, func(q *Queries) error {
		dbOrder, err := q.CreateOrder(ctx, CreateOrderParams{
			CustomerID:  customerUUID,
			TotalAmount: pgTotalAmount,
		})
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		dbItems := make([]OrderItem, 0, len(items))
		eventItems := make([]events.OrderItem, 0, len(items))
		for _, item := range items {
			productUUID, err := mapStringToPgUUID(item.ProductID)
			if err != nil {
				return fmt.Errorf("invalid product id %q: %w", item.ProductID, err)
			}

			pgUnitPrice, err := mapFloatToPgNumeric(item.UnitPrice)
			if err != nil {
				return err
			}

			dbItem, err := q.CreateOrderItem(ctx, CreateOrderItemParams{
				OrderID:   dbOrder.ID,
				ProductID: productUUID,
				Quantity:  item.Quantity,
				UnitPrice: pgUnitPrice,
			})
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			dbItems = append(dbItems, dbItem)
			eventItems = append(eventItems, events.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		payload, err := json.Marshal(events.OrderPlacedEvent{
			OrderID: dbOrder.ID.String(),
			Items:   eventItems,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal OrderPlacedEvent: %w", err)
		}

		if err := q.CreateOutboxEvent(ctx, CreateOutboxEventParams{
			AggregateID: dbOrder.ID,
			RoutingKey:  events.OrderPlacedRoutingKey,
			Payload:     payload,
		}); err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}

		placed = &OrderWithItems{Order: dbOrder, Items: dbItems}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

func (s *PostgreSQLOrderRepository) GetOrderWithItems(ctx context.Context, id pgtype.UUID) (*OrderWithItems, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.GetOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return &OrderWithItems{Order: order, Items: items}, nil
}

func mapStringToPgUUID(value string) (pgtype.UUID, error) {
	var pgUUID pgtype.UUID
	if err := pgUUID.Scan(value); err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return pgUUID, nil
}

func mapFloatToPgNumeric(value float64) (pgtype.Numeric, error) {
	var pgNumeric pgtype.Numeric
	if err := pgNumeric.Scan(fmt.Sprintf("%.2f", value)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("failed to parse numeric: %w", err)
	}
	return pgNumeric, nil
}
