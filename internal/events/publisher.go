// Package events publishes shipping decisions to Kafka. Winning decisions
// go to the configured topic; orders that fail twice go to the matching
// dead-letter topic for downstream triage.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shipops/rate-shopper/internal/entities"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type decisionEvent struct {
	OrderKey    string `json:"order_key"`
	OrderNumber string `json:"order_number"`
	Account     string `json:"account"`
	CarrierCode string `json:"carrier_code,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Price       string `json:"price,omitempty"`
	Reason      string `json:"reason,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
	topic  string
}

func NewPublisher(logger *slog.Logger, cfg Config) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		logger: logger.With(slog.String("component", "events")),
		topic:  cfg.Topic,
	}
}

// Decision publishes the champion rate chosen for an order.
func (p *Publisher) Decision(ctx context.Context, order *entities.Order) error {
	event := decisionEvent{
		OrderKey:    order.Key,
		OrderNumber: order.Number,
		Account:     order.StoreName,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if order.WinningRate != nil {
		event.CarrierCode = order.WinningRate.CarrierCode
		event.ServiceName = order.WinningRate.ServiceName
		event.Price = order.WinningRate.Price.StringFixed(2)
	}
	return p.publish(ctx, p.topic, order.Key, event)
}

// Failure publishes a terminally failed order to the dead-letter topic.
func (p *Publisher) Failure(ctx context.Context, order *entities.Order, reason entities.FailureReason) error {
	event := decisionEvent{
		OrderKey:    order.Key,
		OrderNumber: order.Number,
		Account:     order.StoreName,
		Reason:      string(reason),
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, fmt.Sprintf("%s-dlq", p.topic), order.Key, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event decisionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
