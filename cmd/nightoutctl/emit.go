package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"nightout/internal/auth/models"
	"nightout/internal/identity/kafkaevents"
	"nightout/internal/identity/natsevents"
	"nightout/internal/platform/kafka/producer"
)

type emitTarget struct {
	brokers string
	topic   string
	natsURL string
	subject string
}

func (t emitTarget) emit(ctx context.Context, transport string, n models.Notification) error {
	switch transport {
	case "kafka":
		p, err := producer.New(producer.Config{Brokers: t.brokers, Retries: 3}, nil)
		if err != nil {
			return err
		}
		defer p.Close()
		return kafkaevents.NewEmitter(p, t.topic).Emit(ctx, n)
	case "nats":
		nc, err := nats.Connect(t.natsURL, nats.Name("nightoutctl"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
		if err := natsevents.Emit(nc, t.subject, n); err != nil {
			return err
		}
		return nc.FlushWithContext(ctx)
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}
