package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/s223973381/ishika-sit722/shared/events"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusShipped   = "SHIPPED"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Order struct {
	ID          pgtype.UUID        `json:"id"`
	CustomerID  pgtype.UUID        `json:"customerId"`
	Status      string             `json:"status"`
	TotalAmount pgtype.Numeric     `json:"totalAmount"`
	CreatedAt   pgtype.Timestamptz `json:"createdAt"`
}

type OrderItem struct {
	ID        pgtype.UUID    `json:"id"`
	OrderID   pgtype.UUID    `json:"orderId"`
	ProductID pgtype.UUID    `json:"productId"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unitPrice"`
}

const createOrder = `
INSERT INTO orders (customer_id, total_amount)
VALUES ($1, $2)
RETURNING id, customer_id, status, total_amount, created_at
`

type CreateOrderParams struct {
	CustomerID  pgtype.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.CustomerID, arg.TotalAmount)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, product_id, quantity, unit_price
`

type CreateOrderItemParams struct {
	OrderID   pgtype.UUID
	ProductID pgtype.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice)
	var item OrderItem
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice)
	return item, err
}

const getOrder = `
SELECT id, customer_id, status, total_amount, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderItems = `
SELECT id, order_id, product_id, quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, getOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const listOrdersPaginated = `
SELECT id, customer_id, status, total_amount, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListOrdersPaginatedParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersPaginated(ctx context.Context, arg ListOrdersPaginatedParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersPaginated, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2
WHERE id = $1
RETURNING id, customer_id, status, total_amount, created_at
`

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	return scanOrder(row)
}

const transitionOrderFromPending = `
UPDATE orders
SET status = $2
WHERE id = $1 AND status = 'PENDING'
`

type TransitionOrderFromPendingParams struct {
	ID     pgtype.UUID
	Status string
}

// TransitionOrderFromPending moves an order out of PENDING and reports how
// many rows changed. Zero rows means the order is unknown or was already
// settled, which lets redelivered result events fall through harmlessly.
func (q *Queries) TransitionOrderFromPending(ctx context.Context, arg TransitionOrderFromPendingParams) (int64, error) {
	tag, err := q.db.Exec(ctx, transitionOrderFromPending, arg.ID, arg.Status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteOrder = `
DELETE FROM orders WHERE id = $1
`

func (q *Queries) DeleteOrder(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrder, id)
	return err
}

const createOutboxEvent = `
INSERT INTO outbox_events (aggregate_id, routing_key, payload)
VALUES ($1, $2, $3)
`

type CreateOutboxEventParams struct {
	AggregateID pgtype.UUID
	RoutingKey  string
	Payload     []byte
}

func (q *Queries) CreateOutboxEvent(ctx context.Context, arg CreateOutboxEventParams) error {
	_, err := q.db.Exec(ctx, createOutboxEvent, arg.AggregateID, arg.RoutingKey, arg.Payload)
	return err
}

const getUnpublishedOutboxEvents = `
SELECT id, aggregate_id, routing_key, payload, status
FROM outbox_events
WHERE status = 'PENDING'
ORDER BY created_at
LIMIT $1
`

func (q *Queries) GetUnpublishedOutboxEvents(ctx context.Context, limit int32) ([]events.OutboxEvent, error) {
	rows, err := q.db.Query(ctx, getUnpublishedOutboxEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []events.OutboxEvent
	for rows.Next() {
		var (
			id          pgtype.UUID
			aggregateID pgtype.UUID
			event       events.OutboxEvent
		)
		if err := rows.Scan(&id, &aggregateID, &event.RoutingKey, &event.Payload, &event.Status); err != nil {
			return nil, err
		}
		event.ID = id.String()
		event.AggregateID = aggregateID.String()
		result = append(result, event)
	}
	return result, rows.Err()
}

const markOutboxEventPublished = `
UPDATE outbox_events
SET status = 'PUBLISHED', published_at = now()
WHERE id = $1
`

func (q *Queries) MarkOutboxEventPublished(ctx context.Context, eventID string) error {
	var eventUUID pgtype.UUID
	if err := eventUUID.Scan(eventID); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, markOutboxEventPublished, eventUUID)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	return o, err
}
