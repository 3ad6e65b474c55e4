package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"nightout/internal/platform/config"
)

var (
	poolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nightout_redis_pool_conns",
		Help: "Connections held by the kv store pool, by state",
	}, []string{"state"})
	poolEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nightout_redis_pool_events_total",
		Help: "Connection lookups made by the kv store pool, by outcome",
	}, []string{"event"})
)

// Client is the connection behind the redis kv store.
type Client struct {
	*redis.Client
	last poolCounters
}

// poolCounters are the cumulative counters of the last observed pool stats.
type poolCounters struct {
	hits     uint32
	misses   uint32
	timeouts uint32
	stale    uint32
}

// New connects to cfg.URL and fails unless the server answers a ping.
func New(cfg config.RedisConfig) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// options parses the URL; non-zero pool settings in cfg override the URL's.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url not configured")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health is registered as the "redis" readiness check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RunPoolStats exports pool statistics every interval until ctx is done.
func (c *Client) RunPoolStats(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.observe(c.PoolStats())
		}
	}
}

// observe sets the connection gauges and adds the counter growth since the
// previous call. Not safe for concurrent use.
func (c *Client) observe(stats *redis.PoolStats) {
	poolConns.WithLabelValues("total").Set(float64(stats.TotalConns))
	poolConns.WithLabelValues("idle").Set(float64(stats.IdleConns))

	now := poolCounters{
		hits:     stats.Hits,
		misses:   stats.Misses,
		timeouts: stats.Timeouts,
		stale:    stats.StaleConns,
	}
	addGrowth("hit", c.last.hits, now.hits)
	addGrowth("miss", c.last.misses, now.misses)
	addGrowth("timeout", c.last.timeouts, now.timeouts)
	addGrowth("stale", c.last.stale, now.stale)
	c.last = now
}

func addGrowth(event string, prev, cur uint32) {
	if cur > prev {
		poolEvents.WithLabelValues(event).Add(float64(cur - prev))
	}
}
