package events

// OutboxEvent is a domain event written to the database in the same
// transaction as the mutation it describes, and relayed to the broker
// asynchronously.
type OutboxEvent struct {
	ID          string `json:"id"`
	AggregateID string `json:"aggregateId"`
	RoutingKey  string `json:"routingKey"`
	Payload     []byte `json:"payload"`
	Status      string `json:"status"`
}

const (
	OutboxStatusPending   = "PENDING"
	OutboxStatusPublished = "PUBLISHED"
)
