// Package publisher emits order events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic         = "order-placed"
	EventTypeOrderPlaced = "order.placed"
	defaultTimeout       = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrderPublisher(topic string, logger *zap.Logger, brokers ...string) *OrderPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           defaultTimeout,
	}
	return newOrderPublisher(w, logger)
}

func newOrderPublisher(w messageWriter, logger *zap.Logger) *OrderPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPublisher{writer: w, timeout: defaultTimeout, logger: logger}
}

// PublishOrderPlaced writes one message keyed by order number so events of
// the same order stay on one partition.
func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", event.OrderNumber, err)
	}
	p.logger.Debug("order placed event published", zap.String("order_number", event.OrderNumber))
	return nil
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
