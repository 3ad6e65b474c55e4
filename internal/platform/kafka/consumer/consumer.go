package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	platformstrings "nightout/pkg/platform/strings"
)

// Message represents a received Kafka message.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes consumed messages.
type Handler interface {
	// Handle processes a message. Errors are logged and the offset is still
	// committed; handlers that need redelivery must retry themselves.
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Config holds consumer configuration.
type Config struct {
	Brokers string
	GroupID string
	Topics  []string
	// FromEnd starts a new group at the latest offset instead of the earliest.
	FromEnd bool
}

// Consumer wraps a franz-go group consumer.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a new Kafka consumer. Nothing is fetched until Run is called.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	brokers := platformstrings.DedupeAndTrim(strings.Split(cfg.Brokers, ","))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka topics not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reset := kgo.NewOffset().AtStart()
	if cfg.FromEnd {
		reset = kgo.NewOffset().AtEnd()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(reset),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
	}, nil
}

// Run polls until ctx is cancelled or the consumer is closed. Records of one
// partition are handled in offset order.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			msg := toMessage(r)
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.Error("failed to handle message",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
			handled = append(handled, r)
		})

		if len(handled) == 0 {
			continue
		}
		if err := c.client.CommitRecords(ctx, handled...); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit offsets", "error", err)
		}
	}
}

// Ping checks that at least one broker answers.
func (c *Consumer) Ping(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("kafka consumer closed")
	}
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka ping: %w", err)
	}
	return nil
}

// Close leaves the group and releases the client. Safe to call more than once.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.client.Close()
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}
