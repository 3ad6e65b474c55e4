// Package natsevents relays identity platform notifications published on a NATS
// subject into an in-process hub.
package natsevents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"nightout/internal/auth/models"
	"nightout/internal/identity/wire"
	"nightout/internal/sentinel"
)

// Publisher receives decoded notifications.
type Publisher interface {
	Publish(n models.Notification)
}

// Subscriber listens on one subject. NATS delivers a subscription's messages one
// at a time, so notifications reach the publisher in arrival order.
type Subscriber struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	closed bool
}

// Connect dials url and subscribes to subject.
func Connect(url, subject string, publisher Publisher, logger *slog.Logger, opts ...nats.Option) (*Subscriber, error) {
	if url == "" {
		return nil, errors.New("nats url not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]nats.Option{
		nats.Name("nightout"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", errors.Join(sentinel.ErrUnavailable, err))
	}

	s := &Subscriber{conn: nc, publisher: publisher, logger: logger, now: time.Now}
	sub, err := nc.Subscribe(subject, s.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	n, err := wire.DecodeNotification(msg.Data, s.now())
	if err != nil {
		s.logger.Error("failed to decode auth notification", "subject", msg.Subject, "error", err)
		return
	}
	s.publisher.Publish(n)
}

// Ping flushes the connection to confirm the server is reachable.
func (s *Subscriber) Ping(ctx context.Context) error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("nats not connected: %w", sentinel.ErrUnavailable)
	}
	return s.conn.FlushWithContext(ctx)
}

// Close drains the subscription and the connection. Safe to call more than once.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
}

// Emit publishes n on subject in the encoding the subscriber expects.
func Emit(conn *nats.Conn, subject string, n models.Notification) error {
	payload, err := wire.EncodeNotification(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
