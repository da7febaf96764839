// Package config defines the CaseLens configuration tree. Infrastructure
// sections reuse the config structs of the packages they configure.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/CaseLens/internal/infrastructure/database/redis"
	"github.com/turtacn/CaseLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	miniostore "github.com/turtacn/CaseLens/internal/infrastructure/storage/minio"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// BackendConfig points at the decision backends.
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
	ActorID   string        `mapstructure:"actor_id"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ReviewConfig tunes normalization, derivation and the audit feed. Timezone
// names the IANA zone used for feed date keys; empty means local time.
type ReviewConfig struct {
	DefaultCurrency        string  `mapstructure:"default_currency"`
	ExposureTotalThreshold float64 `mapstructure:"exposure_total_threshold"`
	MetaKVCap              int     `mapstructure:"meta_kv_cap"`
	MetaLargeThreshold     int     `mapstructure:"meta_large_threshold"`
	Timezone               string  `mapstructure:"timezone"`
}

// Location resolves Timezone.
func (r ReviewConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}

// CacheConfig enables the Redis response cache and derivation lock.
type CacheConfig struct {
	redis.RedisConfig `mapstructure:",squash"`

	Enabled   bool          `mapstructure:"enabled"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// TopicsConfig names the topics CaseLens produces to and consumes from.
type TopicsConfig struct {
	AuditDerived string `mapstructure:"audit_derived"`
	CaseUpdated  string `mapstructure:"case_updated"`
	DeadLetter   string `mapstructure:"dead_letter"`
}

// KafkaConfig enables audit publishing and case change notifications.
type KafkaConfig struct {
	Enabled           bool                 `mapstructure:"enabled"`
	Brokers           []string             `mapstructure:"brokers"`
	Producer          kafka.ProducerConfig `mapstructure:"producer"`
	Consumer          kafka.ConsumerConfig `mapstructure:"consumer"`
	Topics            TopicsConfig         `mapstructure:"topics"`
	AutoCreateTopics  bool                 `mapstructure:"auto_create_topics"`
	ReplicationFactor int                  `mapstructure:"replication_factor"`
}

// StorageConfig enables presigned document page URLs.
type StorageConfig struct {
	miniostore.MinIOConfig `mapstructure:",squash"`

	Enabled bool `mapstructure:"enabled"`
}

// MonitoringConfig controls the Prometheus registry.
type MonitoringConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// WorkerConfig tunes the re-derivation worker.
type WorkerConfig struct {
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	LockRetries  int           `mapstructure:"lock_retries"`
	LockWait     time.Duration `mapstructure:"lock_wait"`
	PublishAudit bool          `mapstructure:"publish_audit"`
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Backend    BackendConfig     `mapstructure:"backend"`
	Review     ReviewConfig      `mapstructure:"review"`
	Redis      CacheConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      StorageConfig     `mapstructure:"minio"`
	Monitoring MonitoringConfig  `mapstructure:"monitoring"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Log        logging.LogConfig `mapstructure:"log"`
}

// Validate checks the populated Config. Optional sections are only checked
// when enabled.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("config: backend.base_url %q must be an http(s) url", c.Backend.BaseURL)
	}
	if c.Backend.RetryMax < 0 {
		return fmt.Errorf("config: backend.retry_max must be >= 0, got %d", c.Backend.RetryMax)
	}

	if c.Review.ExposureTotalThreshold < 0 {
		return fmt.Errorf("config: review.exposure_total_threshold must be >= 0")
	}
	if _, err := c.Review.Location(); err != nil {
		return fmt.Errorf("config: review.timezone %q: %w", c.Review.Timezone, err)
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "standalone":
			if c.Redis.Addr == "" {
				return fmt.Errorf("config: redis.addr is required")
			}
		case "sentinel":
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return fmt.Errorf("config: redis sentinel mode needs master_name and sentinel_addrs")
			}
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return fmt.Errorf("config: redis.cluster_addrs is required in cluster mode")
			}
		default:
			return fmt.Errorf("config: redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Redis.Mode)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if err := kafka.ValidateProducerConfig(c.Kafka.Producer); err != nil {
			return fmt.Errorf("config: kafka.producer: %w", err)
		}
		if err := kafka.ValidateConsumerConfig(c.Kafka.Consumer); err != nil {
			return fmt.Errorf("config: kafka.consumer: %w", err)
		}
	}

	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}

	if c.Monitoring.Enabled && c.Monitoring.Namespace == "" {
		return fmt.Errorf("config: monitoring.namespace is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}
