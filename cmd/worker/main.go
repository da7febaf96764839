// Command worker consumes case.updated events and re-derives the audit trail
// of each changed case.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/config"
	"github.com/turtacn/CaseLens/internal/infrastructure/database/redis"
	"github.com/turtacn/CaseLens/internal/infrastructure/decisionapi"
	"github.com/turtacn/CaseLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/CaseLens/internal/interfaces/http"
	"github.com/turtacn/CaseLens/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLens/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var opts []config.LoadOption
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return errors.New("kafka must be enabled for the worker")
	}

	logger, level, err := logging.NewLoggerWithLevel(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logger = logger.Named("worker")
	if configPath != "" {
		if err := config.Watch(configPath, logger, func(c *config.Config) { level.SetLevel(c.Log.Level) }); err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		metrics   casereview.Metrics = casereview.NopMetrics()
		observer  kafka.MessageObserver
		collector prometheus.MetricsCollector
		checkers  []handlers.HealthChecker
	)
	if cfg.Monitoring.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Monitoring.Namespace,
			Subsystem:            "worker",
			EnableProcessMetrics: cfg.Monitoring.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Monitoring.EnableGoMetrics,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		rm := prometheus.NewReviewMetrics(collector)
		metrics = rm
		observer = rm
	}

	apiClient, err := decisionapi.NewClient(cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	settings, err := decisionapi.Settings(cfg.Review)
	if err != nil {
		return err
	}
	var backend casereview.Backend = decisionapi.NewBackend(apiClient)

	handlerOpts := []HandlerOption{WithPublish(cfg.Worker.PublishAudit)}
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis.RedisConfig, logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		checkers = append(checkers, rc)

		cache := redis.NewCache(rc, logger, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Redis.TTL))
		cached := casereview.NewCachedBackend(backend, cache, cfg.Redis.TTL, logger, metrics)
		backend = cached
		locks := redis.NewLockFactory(rc, logger,
			redis.WithLockTTL(cfg.Worker.LockTTL),
			redis.WithRetry(cfg.Worker.LockRetries, cfg.Worker.LockWait),
			redis.WithWatchdog(),
		)
		handlerOpts = append(handlerOpts, WithLocker(locks), WithInvalidator(cached))
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Producer, logger, observer)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	timelines := casereview.NewTimelineService(backend, kafka.NewAuditPublisher(producer, cfg.Kafka.Topics.AuditDerived), settings, logger, metrics)
	rederive := NewRederiveHandler(timelines, logger, handlerOpts...)

	consumer, err := kafka.NewConsumer(cfg.Kafka.Consumer, logger, observer, producer)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Subscribe(cfg.Kafka.Topics.CaseUpdated, rederive.Handle)
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	probes := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		MetricsCollector: collector,
	}), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- probes.Start() }()

	logger.Info("worker started",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.Topics.CaseUpdated),
		logging.String("group", cfg.Kafka.Consumer.GroupID),
		logging.Bool("publish_audit", cfg.Worker.PublishAudit),
	)

	select {
	case err = <-errCh:
		if err != nil {
			logger.Error("probe server failed", logging.Err(err))
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if cerr := consumer.Close(); cerr != nil {
		logger.Warn("consumer close failed", logging.Err(cerr))
	}
	consumed, failed := consumer.Stats()
	logger.Info("consumer stopped", logging.Int64("consumed", consumed), logging.Int64("failed", failed))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := probes.Stop(shutdownCtx); serr != nil {
		logger.Warn("probe server shutdown failed", logging.Err(serr))
	}
	return err
}
