package kafkaevents

import (
	"context"
	"fmt"

	"nightout/internal/auth/models"
	"nightout/internal/identity/wire"
	"nightout/internal/platform/kafka/producer"
)

// RecordProducer publishes one record synchronously.
type RecordProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Emitter writes notifications to the topic the relay consumes. Records are keyed
// by user id so one user's events stay on one partition.
type Emitter struct {
	producer RecordProducer
	topic    string
}

func NewEmitter(p RecordProducer, topic string) *Emitter {
	return &Emitter{producer: p, topic: topic}
}

func (e *Emitter) Emit(ctx context.Context, n models.Notification) error {
	payload, err := wire.EncodeNotification(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	var key []byte
	if n.Session != nil && n.Session.User != nil {
		key = []byte(n.Session.User.ID.String())
	}
	return e.producer.Produce(ctx, &producer.Message{
		Topic:   e.topic,
		Key:     key,
		Value:   payload,
		Headers: map[string]string{"event": n.Event.String()},
	})
}
