package main

import (
	"context"
	"fmt"
	"log/slog"

	authService "nightout/internal/auth/service"
	"nightout/internal/identity/gotrue"
	"nightout/internal/identity/hub"
	"nightout/internal/identity/kafkaevents"
	"nightout/internal/identity/memory"
	"nightout/internal/identity/natsevents"
	"nightout/internal/platform/config"
	"nightout/internal/platform/database"
	"nightout/internal/platform/health"
	"nightout/internal/platform/redis"
	"nightout/internal/platform/tracer"
	profileStore "nightout/internal/profile/store"
	"nightout/internal/storage/kv"
	"nightout/migrations"
)

// infrastructure owns the storage connections opened for the selected backend.
type infrastructure struct {
	kv       kv.Store
	profiles authService.ProfileStore
	redis    *redis.Client
	db       *database.Pool
}

func (i *infrastructure) Close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func openStorage(ctx context.Context, cfg config.Server, log *slog.Logger, checks *health.Handler) (*infrastructure, error) {
	infra := &infrastructure{}

	switch cfg.Storage.Backend {
	case config.StorageRedis:
		client, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.redis = client
		infra.kv = kv.NewRedis(client.Client, cfg.Storage.KeyPrefix)
		checks.RegisterCheck("redis", client.Health)
	case config.StoragePostgres:
		if err := openDatabase(ctx, cfg, infra, checks); err != nil {
			return nil, err
		}
		infra.kv = kv.NewPostgres(infra.db.DB())
	default:
		infra.kv = kv.NewInMemory()
	}

	// Profiles live in Postgres whenever a database is configured, even when the
	// kv medium is something else.
	if infra.db == nil && cfg.Database.URL != "" {
		if err := openDatabase(ctx, cfg, infra, checks); err != nil {
			infra.Close()
			return nil, err
		}
	}
	if infra.db != nil {
		infra.profiles = profileStore.NewPostgres(infra.db.DB())
	} else {
		log.Warn("no database configured, profiles are kept in memory")
		infra.profiles = profileStore.NewInMemory()
	}
	return infra, nil
}

func openDatabase(ctx context.Context, cfg config.Server, infra *infrastructure, checks *health.Handler) error {
	pool, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Migrate(ctx, migrations.FS); err != nil {
		_ = pool.Close()
		return fmt.Errorf("migrate database: %w", err)
	}
	infra.db = pool
	checks.RegisterCheck("postgres", pool.Health)
	return nil
}

// identityPlatform is the platform the auth service consumes plus the hub
// that external relays publish into.
type identityPlatform struct {
	platform authService.Platform
	hub      *hub.Hub
}

func openIdentity(cfg config.Server, store kv.Store, log *slog.Logger, tr tracer.Tracer, checks *health.Handler) (identityPlatform, error) {
	if cfg.Identity.URL == "" {
		log.Warn("GOTRUE_URL not set, using the in-memory identity platform")
		p := memory.New()
		return identityPlatform{platform: p, hub: p.Hub()}, nil
	}
	client, err := gotrue.New(gotrue.Config{
		URL:       cfg.Identity.URL,
		APIKey:    cfg.Identity.APIKey,
		JWTSecret: cfg.Identity.JWTSecret,
		Timeout:   cfg.Identity.RequestTimeout,
	}, store, gotrue.WithLogger(log), gotrue.WithTracer(tr))
	if err != nil {
		return identityPlatform{}, fmt.Errorf("configure identity platform: %w", err)
	}
	checks.RegisterCheck("identity", client.Health)
	return identityPlatform{platform: client, hub: client.Hub()}, nil
}

// relay feeds notifications from an external transport into the identity hub.
type relay interface {
	Run(ctx context.Context) error
	Close()
}

type noRelay struct{}

func (noRelay) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (noRelay) Close() {}

// natsRelay adapts the push-based NATS subscriber to the Run/Close shape.
type natsRelay struct {
	noRelay
	sub *natsevents.Subscriber
}

func (r natsRelay) Close() {
	r.sub.Close()
}

func openRelay(cfg config.Server, h *hub.Hub, log *slog.Logger, checks *health.Handler) (relay, error) {
	switch cfg.Events.Transport {
	case config.EventsKafka:
		c, err := kafkaevents.NewConsumer(kafkaevents.Config{
			Brokers: cfg.Events.KafkaBrokers,
			GroupID: cfg.Events.KafkaGroupID,
			Topic:   cfg.Events.KafkaTopic,
		}, h, log)
		if err != nil {
			return nil, fmt.Errorf("start kafka relay: %w", err)
		}
		checks.RegisterCheck("kafka", c.Ping)
		return c, nil
	case config.EventsNATS:
		sub, err := natsevents.Connect(cfg.Events.NATSURL, cfg.Events.NATSSubject, h, log)
		if err != nil {
			return nil, fmt.Errorf("start nats relay: %w", err)
		}
		checks.RegisterCheck("nats", sub.Ping)
		return natsRelay{sub: sub}, nil
	default:
		return noRelay{}, nil
	}
}
