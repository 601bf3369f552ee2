package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

type fakeWriter struct {
	msgs     []kafka.Message
	err      error
	deadline bool
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() domain.OrderPlaced {
	return domain.OrderPlaced{
		OrderNumber: "ORD-42",
		SellerID:    "shop-1",
		UserID:      "cust-1",
		Items:       []domain.CartLine{{Product: domain.Product{ID: "p1", Price: 100}, Quantity: 2}},
		Total:       200,
		PlacedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	p := newOrderPublisher(w, nil)

	err := p.PublishOrderPlaced(context.Background(), sampleEvent())

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ORD-42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventTypeOrderPlaced, string(msg.Headers[0].Value))
	assert.True(t, w.deadline, "write is bounded by a timeout")

	var got domain.OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestPublishOrderPlaced_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker not available")}
	p := newOrderPublisher(w, nil)

	err := p.PublishOrderPlaced(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, w.err)
	assert.Contains(t, err.Error(), "ORD-42")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newOrderPublisher(w, nil).Close())
	assert.True(t, w.closed)
}

func TestOrderPublisher_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx := context.Background()

	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)
	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	p := NewOrderPublisher("order-placed-test", nil, brokers...)
	defer p.Close()

	// the first write may race topic auto-creation
	require.Eventually(t, func() bool {
		return p.PublishOrderPlaced(ctx, sampleEvent()) == nil
	}, 30*time.Second, time.Second)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     "order-placed-test",
		Partition: 0,
		MaxWait:   time.Second,
	})
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", string(msg.Key))
}
