package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "nightout/pkg/platform/strings"
)

// Storage backends for the key/value persistence medium.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Transports that relay identity platform notifications into the process.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsNATS  = "nats"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Identity IdentityConfig
	Events   EventsConfig
	Outing   OutingConfig
}

// StorageConfig selects the backend for the local persistence medium.
type StorageConfig struct {
	Backend   string
	KeyPrefix string
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres pool used by the kv and profile stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// IdentityConfig points at the hosted identity platform (GoTrue compatible).
type IdentityConfig struct {
	URL                string
	APIKey             string
	JWTSecret          string
	RequestTimeout     time.Duration
	ProvisionProviders []string
	ProvisionQueueSize int
}

// EventsConfig configures the optional notification relay.
type EventsConfig struct {
	Transport    string
	KafkaBrokers string
	KafkaGroupID string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string
}

// OutingConfig configures the outing statistics tracker.
type OutingConfig struct {
	DiscardMalformed bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:            getEnv("NIGHTOUT_ADDR", ":8080"),
		Environment:     getEnv("NIGHTOUT_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		Storage: StorageConfig{
			Backend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "nightout:"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Identity: IdentityConfig{
			URL:                strings.TrimRight(os.Getenv("GOTRUE_URL"), "/"),
			APIKey:             os.Getenv("GOTRUE_API_KEY"),
			JWTSecret:          os.Getenv("GOTRUE_JWT_SECRET"),
			RequestTimeout:     getEnvDuration("GOTRUE_TIMEOUT", 10*time.Second),
			ProvisionProviders: getEnvList("PROVISION_PROVIDERS", []string{"google", "apple"}),
			ProvisionQueueSize: getEnvInt("PROVISION_QUEUE_SIZE", 16),
		},
		Events: EventsConfig{
			Transport:    strings.ToLower(getEnv("AUTH_EVENTS_TRANSPORT", EventsNone)),
			KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
			KafkaGroupID: getEnv("KAFKA_GROUP_ID", "nightout"),
			KafkaTopic:   getEnv("KAFKA_AUTH_TOPIC", "auth.events"),
			NATSURL:      os.Getenv("NATS_URL"),
			NATSSubject:  getEnv("NATS_AUTH_SUBJECT", "auth.events"),
		},
		Outing: OutingConfig{
			DiscardMalformed: getEnvBool("OUTING_DISCARD_MALFORMED", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	var missing []string

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Events.Transport {
	case EventsNone:
	case EventsKafka:
		if c.Events.KafkaBrokers == "" {
			missing = append(missing, "KAFKA_BROKERS")
		}
	case EventsNATS:
		if c.Events.NATSURL == "" {
			missing = append(missing, "NATS_URL")
		}
	default:
		return fmt.Errorf("unsupported AUTH_EVENTS_TRANSPORT %q", c.Events.Transport)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out := platformstrings.DedupeAndTrimLower(strings.Split(v, ","))
	if len(out) == 0 {
		return fallback
	}
	return out
}
