package events

import (
	"context"

	"github.com/s223973381/ishika-sit722/shared/rabbitmq"
)

// Publisher publishes domain events under a routing key on the shared
// direct exchange. Messages are persistent and JSON-encoded by the client.
type Publisher struct {
	client *rabbitmq.Client
}

func NewPublisher(client *rabbitmq.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.client.Publish(ctx, rabbitmq.PublishOptions{
		Exchange:     ExchangeName,
		ExchangeType: rabbitmq.ExchangeDirect,
		RoutingKey:   routingKey,
		Body:         body,
	})
}
