// Package kafkaevents relays identity platform notifications published on a
// Kafka topic into an in-process hub.
package kafkaevents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nightout/internal/auth/models"
	"nightout/internal/identity/wire"
	"nightout/internal/platform/kafka/consumer"
)

// Publisher receives decoded notifications.
type Publisher interface {
	Publish(n models.Notification)
}

// Relay decodes records and hands them to a Publisher in partition order.
type Relay struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewRelay(publisher Publisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{publisher: publisher, logger: logger, now: time.Now}
}

// Handle implements consumer.Handler. Undecodable records are skipped.
func (r *Relay) Handle(ctx context.Context, msg *consumer.Message) error {
	n, err := wire.DecodeNotification(msg.Value, r.now())
	if err != nil {
		return fmt.Errorf("offset %d: %w", msg.Offset, err)
	}
	r.logger.DebugContext(ctx, "auth notification received",
		"event", n.Event.String(),
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	r.publisher.Publish(n)
	return nil
}

// Config selects the topic carrying notifications.
type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// NewConsumer builds a consumer feeding publisher. Run it with Consumer.Run.
func NewConsumer(cfg Config, publisher Publisher, logger *slog.Logger) (*consumer.Consumer, error) {
	return consumer.New(consumer.Config{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topics:  []string{cfg.Topic},
		FromEnd: true,
	}, NewRelay(publisher, logger), logger)
}
