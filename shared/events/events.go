// Package events holds the message contracts exchanged between services.
// Payloads are immutable once published; a consumer must tolerate receiving
// the same event more than once.
package events

const (
	// ExchangeName is the single durable direct exchange shared by all services.
	ExchangeName = "ecomm_events"

	OrderPlacedRoutingKey          = "order.placed"
	StockDeductedRoutingKey        = "product.stock.deducted"
	StockDeductionFailedRoutingKey = "product.stock.deduction.failed"
)

// OrderPlacedEvent is published by the order service once an order and its
// line items are durably committed.
type OrderPlacedEvent struct {
	OrderID string      `json:"order_id"`
	Items   []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

// StockDeductedEvent signals that every line item of the order was deducted
// atomically.
type StockDeductedEvent struct {
	OrderID string `json:"order_id"`
}

// StockDeductionFailedEvent is the compensating event: no stock was changed
// for the order.
type StockDeductionFailedEvent struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}
