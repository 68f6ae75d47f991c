// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/application/editor"
	"github.com/tastyfood/web/internal/application/generation"
	"github.com/tastyfood/web/internal/infrastructure/api"
	"github.com/tastyfood/web/internal/infrastructure/cache"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/http/webserver"
	"github.com/tastyfood/web/internal/infrastructure/monitoring"
	"github.com/tastyfood/web/internal/infrastructure/persistence/memory"
	redisstaging "github.com/tastyfood/web/internal/infrastructure/persistence/redis"
	"github.com/tastyfood/web/internal/infrastructure/render"
	"github.com/tastyfood/web/internal/infrastructure/staging"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	"github.com/tastyfood/web/pkg/healthcheck"
	"github.com/tastyfood/web/pkg/logger"
)

// Module provides every module of the web frontend
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	BackendModule,
	StagingModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(NewLogger)

// NewLogger builds the service logger from configuration
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
		Service:     cfg.App.Name,
	})
}

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Provide(
	func(cfg *config.Config) *monitoring.Metrics {
		if !cfg.Monitoring.EnableMetrics {
			return nil
		}
		return monitoring.NewMetrics()
	},
	func(metrics *monitoring.Metrics) outbound.MetricsRecorder {
		if metrics == nil {
			return outbound.NopMetrics{}
		}
		return metrics
	},
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tracing, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			Endpoint:       cfg.Monitoring.TracingEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tracing.Shutdown})
		return tracing, nil
	},
)

// BackendModule provides the recipe backend client
var BackendModule = fx.Provide(
	fx.Annotate(
		api.NewClient,
		fx.As(new(outbound.RecipeBackend)),
	),
)

// StagingModule provides the draft staging backend selected by staging.driver
var StagingModule = fx.Provide(
	NewStagingBackend,
	func(cfg *config.Config, backend outbound.StagingBackend, log *zap.Logger) *staging.Provider {
		return staging.NewProvider(backend, cfg.Staging.TTL, log)
	},
)

// NewStagingBackend opens the configured staging backend and closes it on
// shutdown
func NewStagingBackend(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.StagingBackend, error) {
	backend, closer, err := OpenStagingBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return closer() }})
	return backend, nil
}

// OpenStagingBackend opens the backend named by staging.driver. The caller
// owns the returned close function.
func OpenStagingBackend(cfg *config.Config, log *zap.Logger) (outbound.StagingBackend, func() error, error) {
	switch cfg.Staging.Driver {
	case config.StagingRedis:
		client, err := cache.NewRedisClient(&cfg.Redis, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect staging redis: %w", err)
		}
		log.Info("Using Redis draft staging", zap.String("address", cfg.Redis.Address()))
		return redisstaging.NewStagingRepository(client, cfg.Redis.KeyPrefix, log), client.Close, nil

	case config.StagingMemory, "":
		repo := memory.NewStagingRepository(cfg.Session.CleanupInterval)
		log.Info("Using in-memory draft staging")
		return repo, repo.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown staging driver %q", cfg.Staging.Driver)
	}
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	fx.Annotate(
		func(backend outbound.RecipeBackend, metrics outbound.MetricsRecorder, cfg *config.Config, log *zap.Logger) *generation.Service {
			return generation.NewService(backend, metrics, GenerationConfig(cfg), log)
		},
		fx.As(new(inbound.GenerationService)),
	),
	fx.Annotate(
		render.NewHTMLRenderer,
		fx.As(new(outbound.MarkdownRenderer)),
	),
	fx.Annotate(
		func(backend outbound.RecipeBackend, renderer outbound.MarkdownRenderer, metrics outbound.MetricsRecorder, cfg *config.Config, log *zap.Logger) *editor.Service {
			return editor.NewService(backend, renderer, metrics, EditorConfig(cfg), log)
		},
		fx.As(new(inbound.EditorService)),
	),
)

// GenerationConfig maps the generation section onto the orchestrator's config
func GenerationConfig(cfg *config.Config) generation.Config {
	gen := cfg.Generation

	retry := generation.DefaultRetryPolicy()
	retry.MaxAttempts = gen.MaxAttempts
	if gen.Backoff == config.BackoffExponential {
		retry = generation.ExponentialRetryPolicy(gen.MaxAttempts, gen.InitialDelay, gen.MaxDelay)
	}

	return generation.Config{
		Retry:         retry,
		CallTimeout:   gen.CallTimeout,
		KeywordPrefix: gen.KeywordPrefix,
		EditorPath:    gen.EditorPath,
	}
}

// EditorConfig maps the editor section onto the editor's config
func EditorConfig(cfg *config.Config) editor.Config {
	return editor.Config{
		MaxUploadBytes:   cfg.Editor.MaxUploadBytes,
		AllowedImageMIME: cfg.Editor.AllowedImageMIME,
		PublishedPath:    cfg.Editor.PublishedPath,
	}
}

// HTTPModule provides the web server and its health checks
var HTTPModule = fx.Provide(
	NewHealthCheck,
	webserver.NewSessionStore,
	webserver.NewWebServer,
)

// NewHealthCheck registers a checker per external dependency
func NewHealthCheck(cfg *config.Config, backend outbound.StagingBackend, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.Register("recipe_api", healthcheck.HTTPGet(cfg.Backend.BaseURL+"/auth/check", cfg.Backend.Timeout))
	if pinger, ok := backend.(healthcheck.Pinger); ok {
		hc.Register("staging", healthcheck.Ping(pinger))
	}
	return hc
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *webserver.WebServer,
	_ *monitoring.TracingProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting TastyFood web frontend",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
