package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/ailab/linkguard/internal/audit"
	"github.com/ailab/linkguard/internal/health"
	"github.com/ailab/linkguard/internal/moderation"
	"github.com/ailab/linkguard/internal/redis"
	"github.com/ailab/linkguard/internal/setup/config"
	"github.com/ailab/linkguard/internal/setup/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config       // Application configuration
	Logger       *zap.Logger          // Main application logger
	ClientLogger *zap.Logger          // WhatsApp protocol library logger
	LogManager   *telemetry.Manager   // Log management system
	RedisManager *redis.Manager       // Redis connection manager, nil when disabled
	Recorder     moderation.Recorder  // Moderation audit sink
	Registry     *prometheus.Registry // Metrics registry served by the health server
	Metrics      *moderation.Metrics  // Moderation counters
	Health       *health.Server       // Liveness endpoint, nil when disabled
	tracing      bool                 // Spans are exported to Uptrace
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	return initializeWith(ctx, cfg, configDir, logDir)
}

// initializeWith builds the application from an already loaded config.
func initializeWith(ctx context.Context, cfg *config.Config, configDir, logDir string) (*App, error) {
	// Logging system is initialized first to capture setup issues
	logManager := telemetry.NewManager("bot", logDir, &cfg.Common.Debug)

	logger, clientLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("configDir", configDir))

	// Tracing is configured before any component creates its tracer
	if cfg.Common.Tracing.Enabled {
		uptrace.ConfigureOpentelemetry(
			uptrace.WithDSN(cfg.Common.Tracing.DSN),
			uptrace.WithServiceName("linkguard"),
			uptrace.WithServiceVersion(config.RepositoryVersion),
			uptrace.WithResourceAttributes(
				attribute.String("service.instance.id", logManager.GetInstanceID()),
			),
		)
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		ClientLogger: clientLogger,
		LogManager:   logManager,
		tracing:      cfg.Common.Tracing.Enabled,
		Recorder:     audit.NopRecorder{},
		Registry:     prometheus.NewRegistry(),
	}

	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = moderation.NewMetrics(app.Registry)

	// Redis is only needed for the audit stream
	if cfg.Common.Redis.Enabled {
		app.RedisManager = redis.NewManager(&cfg.Common.Redis, logger)
	}

	if cfg.Bot.Audit.Enabled {
		client, err := app.RedisManager.GetClient(redis.AuditDBIndex)
		if err != nil {
			app.Cleanup(ctx)
			return nil, fmt.Errorf("failed to connect audit stream: %w", err)
		}

		app.Recorder = audit.NewRedisRecorder(client, cfg.Bot.Audit.Stream, cfg.Bot.Audit.MaxLen, logger)
	}

	if cfg.Common.Health.Enabled {
		app.Health = health.NewServer(&cfg.Common.Health, app.Registry, logger)
	}

	return app, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Flush pending spans while the network is still available
	if s.tracing {
		if err := uptrace.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Error("Failed to shut down tracing", zap.Error(err))
		}
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.ClientLogger.Sync(); err != nil {
		log.Printf("Failed to sync client logger: %v", err)
	}

	s.LogManager.Stop()

	// Close Redis connections last as the recorder might need them until now
	if s.RedisManager != nil {
		s.RedisManager.Close()
	}
}
