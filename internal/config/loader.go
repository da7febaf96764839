package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
)

// envPrefix maps nested keys like "backend.base_url" to CASELENS_BACKEND_BASE_URL.
const envPrefix = "CASELENS"

var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigInvalid      = errors.New("config: invalid configuration")
)

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path      string
	overrides map[string]interface{}
}

// WithConfigPath reads the YAML file at path before applying env overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithOverride sets key after file and environment, e.g. from CLI flags.
func WithOverride(key string, value interface{}) LoadOption {
	return func(o *loadOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]interface{})
		}
		o.overrides[key] = value
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	v.SetDefault("worker.publish_audit", true)
	return v
}

// bindEnvKeys registers every leaf key so that env-only deployments work;
// viper's AutomaticEnv only consults the environment for keys it already knows.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port", "server.read_timeout", "server.write_timeout",
		"server.idle_timeout", "server.shutdown_timeout", "server.max_body_size",
		"backend.base_url", "backend.api_key", "backend.timeout", "backend.retry_max",
		"backend.actor_id", "backend.user_agent",
		"review.default_currency", "review.exposure_total_threshold", "review.meta_kv_cap",
		"review.meta_large_threshold", "review.timezone",
		"redis.enabled", "redis.mode", "redis.addr", "redis.password", "redis.db",
		"redis.key_prefix", "redis.ttl",
		"kafka.enabled", "kafka.brokers", "kafka.auto_create_topics",
		"kafka.consumer.group_id",
		"minio.enabled", "minio.endpoint", "minio.access_key_id", "minio.secret_access_key",
		"minio.use_ssl", "minio.region", "minio.document_bucket", "minio.presign_expiry",
		"minio.verify_objects",
		"monitoring.enabled", "monitoring.namespace",
		"worker.lock_ttl", "worker.publish_audit",
		"log.level", "log.format",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads configuration from an optional YAML file, CASELENS_* environment
// variables and overrides, applies defaults and validates the result.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	if o.path != "" {
		if err := readFile(v, o.path); err != nil {
			return nil, err
		}
	}
	for k, val := range o.overrides {
		v.Set(k, val)
	}
	return unmarshalAndFinalize(v)
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigParseError, path, err)
	}
	return nil
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return cfg, nil
}

// MustLoad panics when Load fails.
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Watch re-reads path on every write and hands valid results to onChange.
// Invalid edits are logged and skipped so the running process keeps its last
// good configuration. Only settings that are safe to swap at runtime, such as
// the log level, should be applied by onChange.
func Watch(path string, logger logging.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	v := newViper()
	if err := readFile(v, path); err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			logger.Warn("ignoring invalid config change", logging.String("file", e.Name), logging.Err(err))
			return
		}
		logger.Info("config reloaded", logging.String("file", e.Name), logging.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
