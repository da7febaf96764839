package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultBackendURL, cfg.Backend.BaseURL)
	assert.Equal(t, "THB", cfg.Review.DefaultCurrency)
	assert.Equal(t, 10000.0, cfg.Review.ExposureTotalThreshold)
	assert.Equal(t, 14, cfg.Review.MetaKVCap)
	assert.Equal(t, 900, cfg.Review.MetaLargeThreshold)
	assert.Equal(t, "standalone", cfg.Redis.Mode)
	assert.Equal(t, DefaultCacheTTL, cfg.Redis.TTL)
	assert.Equal(t, "caselens-documents", cfg.MinIO.DocumentBucket)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestApplyDefaults_KafkaSharesBrokers(t *testing.T) {
	cfg := &Config{}
	cfg.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	ApplyDefaults(cfg)

	assert.Equal(t, cfg.Kafka.Brokers, cfg.Kafka.Producer.Brokers)
	assert.Equal(t, cfg.Kafka.Brokers, cfg.Kafka.Consumer.Brokers)
	assert.Equal(t, []string{"caselens.case.updated"}, cfg.Kafka.Consumer.Topics)
	assert.Equal(t, "caselens.dead_letter", cfg.Kafka.Consumer.Retry.DeadLetterTopic)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Review.DefaultCurrency = "USD"
	cfg.Redis.TTL = time.Hour
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Review.DefaultCurrency)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
