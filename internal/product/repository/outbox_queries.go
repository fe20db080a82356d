package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/s223973381/ishika-sit722/shared/events"
)

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

const createProcessedEvent = `
INSERT INTO processed_events (aggregate_id, event_name)
VALUES ($1, $2)
`

type CreateProcessedEventParams struct {
	AggregateID pgtype.UUID
	EventName   string
}

func (q *Queries) CreateProcessedEvent(ctx context.Context, arg CreateProcessedEventParams) error {
	_, err := q.db.Exec(ctx, createProcessedEvent, arg.AggregateID, arg.EventName)
	return err
}

const getProcessedEvent = `
SELECT id FROM processed_events
WHERE aggregate_id = $1 AND event_name = $2
`

type GetProcessedEventParams struct {
	AggregateID pgtype.UUID
	EventName   string
}

func (q *Queries) GetProcessedEvent(ctx context.Context, arg GetProcessedEventParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx, getProcessedEvent, arg.AggregateID, arg.EventName).Scan(&id)
	return id, err
}
