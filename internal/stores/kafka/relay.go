package kafka

import (
	"context"
	"log/slog"
	"time"

	"bakery-service/internal/orders"
	"bakery-service/pkg/logkey"
)

// Outbox is the store side of the relay.
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]orders.Event, error)
	MarkPublished(ctx context.Context, ids []string) error
}

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

// Relay drains the order outbox into a Kafka topic. Events are published at
// least once: a crash between produce and MarkPublished resends the batch.
type Relay struct {
	outbox   Outbox
	producer Producer
	topic    string
	interval time.Duration
	batch    int
}

func NewRelay(outbox Outbox, producer Producer, topic string) *Relay {
	if topic == "" {
		topic = DefaultOrdersTopic
	}
	return &Relay{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			slog.Error("outbox relay failed", slog.String(logkey.ERROR, err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch in order and stops at the first failure, marking
// only what was delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.outbox.PendingEvents(ctx, r.batch)
	if err != nil || len(events) == 0 {
		return 0, err
	}

	sent := make([]string, 0, len(events))
	var produceErr error
	for _, e := range events {
		if produceErr = r.producer.ProduceMessage(ctx, r.topic, []byte(e.OrderID), envelope(e)); produceErr != nil {
			break
		}
		sent = append(sent, e.ID)
	}

	if len(sent) > 0 {
		if err := r.outbox.MarkPublished(ctx, sent); err != nil {
			return 0, err
		}
		slog.Info("outbox events published", slog.Int("count", len(sent)), slog.String("topic", r.topic))
	}
	return len(sent), produceErr
}
