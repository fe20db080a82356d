package rabbitmq

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type ExchangeType string

const (
	ExchangeFanout ExchangeType = "fanout"
	ExchangeTopic  ExchangeType = "topic"
	ExchangeDirect ExchangeType = "direct"
)

type PublishOptions struct {
	Exchange     string
	ExchangeType ExchangeType
	RoutingKey   string
	Body         []byte
}

type SubscribeOptions struct {
	Exchange     string
	ExchangeType ExchangeType
	QueueName    string
	ConsumerTag  string
	// BindingKeys binds the queue under every listed routing key.
	BindingKeys []string
	Handler     func(ctx context.Context, d amqp091.Delivery)
}

// DialConfig controls the bounded connect-with-retry performed at startup.
type DialConfig struct {
	URL             string
	ConnectAttempts int
	ConnectDelay    time.Duration
}

const (
	defaultConnectAttempts = 10
	defaultConnectDelay    = 5 * time.Second
)

// DialConfigFromEnv reads RABBITMQ_URL plus the optional
// RABBITMQ_CONNECT_ATTEMPTS and RABBITMQ_CONNECT_DELAY overrides.
func DialConfigFromEnv() (DialConfig, error) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		return DialConfig{}, fmt.Errorf("RABBITMQ_URL is not set")
	}

	cfg := DialConfig{
		URL:             url,
		ConnectAttempts: defaultConnectAttempts,
		ConnectDelay:    defaultConnectDelay,
	}

	if v := os.Getenv("RABBITMQ_CONNECT_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 1 {
			return DialConfig{}, fmt.Errorf("invalid RABBITMQ_CONNECT_ATTEMPTS: %q", v)
		}
		cfg.ConnectAttempts = attempts
	}

	if v := os.Getenv("RABBITMQ_CONNECT_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil {
			return DialConfig{}, fmt.Errorf("invalid RABBITMQ_CONNECT_DELAY: %w", err)
		}
		cfg.ConnectDelay = delay
	}

	return cfg, nil
}
