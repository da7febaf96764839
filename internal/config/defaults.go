package config

import (
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/messaging/kafka"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultBackendURL     = "http://localhost:8000"
	DefaultBackendTimeout = 30 * time.Second
	DefaultActorID        = "SYSTEM"

	DefaultRedisAddr = "localhost:6379"
	DefaultCacheTTL  = 2 * time.Minute

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "caselens-worker"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultMetricsNamespace = "caselens"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-value fields in cfg. Explicit values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 10 << 20
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.ActorID == "" {
		cfg.Backend.ActorID = DefaultActorID
	}

	if cfg.Review.DefaultCurrency == "" {
		cfg.Review.DefaultCurrency = review.DefaultCurrency
	}
	if cfg.Review.ExposureTotalThreshold == 0 {
		cfg.Review.ExposureTotalThreshold = review.DefaultExposureThreshold.InexactFloat64()
	}
	if cfg.Review.MetaKVCap == 0 {
		cfg.Review.MetaKVCap = review.DefaultMetaKVCap
	}
	if cfg.Review.MetaLargeThreshold == 0 {
		cfg.Review.MetaLargeThreshold = review.DefaultMetaLargeThreshold
	}

	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = "standalone"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "caselens:"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultCacheTTL
	}

	applyKafkaDefaults(&cfg.Kafka)

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.DocumentBucket == "" {
		cfg.MinIO.DocumentBucket = "caselens-documents"
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 15 * time.Minute
	}

	if cfg.Monitoring.Namespace == "" {
		cfg.Monitoring.Namespace = DefaultMetricsNamespace
	}

	if cfg.Worker.LockTTL == 0 {
		cfg.Worker.LockTTL = 30 * time.Second
	}
	if cfg.Worker.LockRetries == 0 {
		cfg.Worker.LockRetries = 50
	}
	if cfg.Worker.LockWait == 0 {
		cfg.Worker.LockWait = 200 * time.Millisecond
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}

// applyKafkaDefaults shares the top-level broker list with the producer and
// consumer and points the consumer at the case update topic.
func applyKafkaDefaults(k *KafkaConfig) {
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	if k.Topics.AuditDerived == "" {
		k.Topics.AuditDerived = kafka.TopicAuditDerived
	}
	if k.Topics.CaseUpdated == "" {
		k.Topics.CaseUpdated = kafka.TopicCaseUpdated
	}
	if k.Topics.DeadLetter == "" {
		k.Topics.DeadLetter = kafka.TopicDeadLetter
	}
	if k.ReplicationFactor == 0 {
		k.ReplicationFactor = 1
	}

	if len(k.Producer.Brokers) == 0 {
		k.Producer.Brokers = k.Brokers
	}
	if k.Producer.Acks == "" {
		k.Producer.Acks = "all"
	}

	if len(k.Consumer.Brokers) == 0 {
		k.Consumer.Brokers = k.Brokers
	}
	if k.Consumer.GroupID == "" {
		k.Consumer.GroupID = DefaultKafkaGroupID
	}
	if len(k.Consumer.Topics) == 0 {
		k.Consumer.Topics = []string{k.Topics.CaseUpdated}
	}
	if k.Consumer.AutoOffsetReset == "" {
		k.Consumer.AutoOffsetReset = "earliest"
	}
	if k.Consumer.Retry.DeadLetterTopic == "" {
		k.Consumer.Retry.DeadLetterTopic = k.Topics.DeadLetter
	}
	if k.Consumer.Retry.MaxRetries == 0 {
		k.Consumer.Retry.MaxRetries = 3
	}
	if k.Consumer.Retry.RetryBackoff == 0 {
		k.Consumer.Retry.RetryBackoff = 500 * time.Millisecond
	}
}
