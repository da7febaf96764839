package main

import (
	"context"
	"fmt"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/config"
	"github.com/turtacn/CaseLens/internal/infrastructure/database/redis"
	"github.com/turtacn/CaseLens/internal/infrastructure/decisionapi"
	"github.com/turtacn/CaseLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/prometheus"
	miniostore "github.com/turtacn/CaseLens/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/CaseLens/internal/interfaces/http"
	"github.com/turtacn/CaseLens/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLens/internal/interfaces/http/middleware"
)

// application is the wired API server and the resources it must release.
type application struct {
	server  *httpserver.Server
	closers []func() error
}

func (a *application) Close(logger logging.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("failed to release resource", logging.Err(err))
		}
	}
}

// buildApplication connects every enabled integration. Optional sections
// that are disabled leave their port unset and the pipeline degrades to
// direct backend calls.
func buildApplication(ctx context.Context, cfg *config.Config, logger logging.Logger) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.Close(logger)
		return nil, err
	}

	var (
		metrics   casereview.Metrics = casereview.NopMetrics()
		observer  kafka.MessageObserver
		collector prometheus.MetricsCollector
		reviewMet *prometheus.ReviewMetrics
		checkers  []handlers.HealthChecker
	)
	if cfg.Monitoring.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Monitoring.Namespace,
			Subsystem:            cfg.Monitoring.Subsystem,
			EnableProcessMetrics: cfg.Monitoring.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Monitoring.EnableGoMetrics,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("metrics: %w", err))
		}
		collector = c
		reviewMet = prometheus.NewReviewMetrics(c)
		metrics = reviewMet
		observer = reviewMet
	}

	apiClient, err := decisionapi.NewClient(cfg.Backend, logger)
	if err != nil {
		return fail(fmt.Errorf("backend client: %w", err))
	}
	direct := decisionapi.NewBackend(apiClient)
	settings, err := decisionapi.Settings(cfg.Review)
	if err != nil {
		return fail(err)
	}

	var backend casereview.Backend = direct
	caseOpts := []casereview.CaseServiceOption{casereview.WithCaseMetrics(metrics)}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis.RedisConfig, logger)
		if err != nil {
			return fail(fmt.Errorf("redis: %w", err))
		}
		app.closers = append(app.closers, rc.Close)
		checkers = append(checkers, rc)

		cache := redis.NewCache(rc, logger, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Redis.TTL))
		cached := casereview.NewCachedBackend(direct, cache, cfg.Redis.TTL, logger, metrics)
		backend = cached
		caseOpts = append(caseOpts, casereview.WithInvalidator(cached))
	}

	var publisher casereview.AuditPublisher
	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err := ensureTopics(ctx, cfg, logger); err != nil {
				return fail(err)
			}
		}
		producer, err := kafka.NewProducer(cfg.Kafka.Producer, logger, observer)
		if err != nil {
			return fail(fmt.Errorf("kafka producer: %w", err))
		}
		app.closers = append(app.closers, producer.Close)
		publisher = kafka.NewAuditPublisher(producer, cfg.Kafka.Topics.AuditDerived)
		caseOpts = append(caseOpts, casereview.WithNotifier(kafka.NewCaseNotifier(producer, cfg.Kafka.Topics.CaseUpdated)))
	}

	var resolver casereview.PageURLResolver
	if cfg.MinIO.Enabled {
		mc, err := miniostore.NewClient(ctx, cfg.MinIO.MinIOConfig, logger)
		if err != nil {
			return fail(fmt.Errorf("minio: %w", err))
		}
		checkers = append(checkers, mc)
		resolver = mc
	}

	normalizer := settings.Normalizer()
	timelines := casereview.NewTimelineService(backend, publisher, settings, logger, metrics)
	cases := casereview.NewCaseService(backend, direct, logger, caseOpts...)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		CaseHandler: handlers.NewCaseHandler(func() *casereview.Coordinator {
			return casereview.NewCoordinator(backend, logger, casereview.WithMetrics(metrics), casereview.WithNormalizer(normalizer))
		}, timelines, cases, logger),
		DocumentHandler: handlers.NewDocumentHandler(func() *casereview.Navigator {
			return casereview.NewNavigator(backend, resolver, logger, metrics)
		}, logger),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		CORS:             corsConfig(),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		MetricsCollector: collector,
		Metrics:          reviewMet,
		MaxBodySize:      cfg.Server.MaxBodySize,
	})

	app.server = httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, logger)
	return app, nil
}

func corsConfig() *middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	return &c
}

func ensureTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(ctx, cfg.Kafka.Brokers, logger)
	if err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	defer tm.Close()
	return tm.EnsureTopics(topicSpecs(cfg))
}

// topicSpecs applies the configured topic names to the default layout.
func topicSpecs(cfg *config.Config) []kafka.TopicConfig {
	specs := kafka.DefaultTopics(cfg.Kafka.ReplicationFactor)
	names := map[string]string{
		kafka.TopicAuditDerived: cfg.Kafka.Topics.AuditDerived,
		kafka.TopicCaseUpdated:  cfg.Kafka.Topics.CaseUpdated,
		kafka.TopicDeadLetter:   cfg.Kafka.Topics.DeadLetter,
	}
	for i := range specs {
		if n := names[specs[i].Name]; n != "" {
			specs[i].Name = n
		}
	}
	return specs
}

var _ casereview.PrefixDeleter = (*redis.Cache)(nil)
