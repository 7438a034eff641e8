package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/infrastructure/config"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/internal/repository/postgres"
	"github.com/saintber/extensions/internal/service"
	"github.com/saintber/extensions/pkg/di"
	"github.com/saintber/extensions/pkg/retry"
	"github.com/saintber/extensions/pkg/transactions"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Pool      *pgxpool.Pool
	Metrics   *observability.Metrics
	TxManager *transactions.Manager
	Services  *di.Provider

	tracer *sdktrace.TracerProvider
}

func New(ctx context.Context, serviceName string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var out io.Writer = os.Stdout
	if cfg.Observability.LogFormat == "console" {
		out = observability.ConsoleOutput(os.Stdout)
	}
	logger := observability.InitLogger(cfg.Observability.LogLevel, out)
	observability.SetGlobalLogger(logger)
	logger.Info().Str("service", serviceName).Str("instance_id", cfg.InstanceID).Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, os.Stderr)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	var txMetrics *transactions.Metrics
	if cfg.Observability.EnableMetrics {
		app.Metrics = observability.NewMetrics(cfg.Observability.MetricsNamespace, nil)
		txMetrics = transactions.NewMetrics(cfg.Observability.MetricsNamespace, nil)
		logger.Info().Msg("Metrics initialized")
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database, observability.ForComponent(logger, "postgres"))
	if err != nil {
		app.shutdownTracer(ctx)
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	app.Pool = pool
	logger.Info().Msg("Connected to PostgreSQL")

	txOpts := []transactions.ManagerOption{
		transactions.WithLogger(observability.ForComponent(logger, "transactions")),
		transactions.WithDefaultTimeout(cfg.Transactions.DefaultTimeout),
		transactions.WithMaxTimeout(cfg.Transactions.MaxTimeout),
	}
	if txMetrics != nil {
		txOpts = append(txOpts, transactions.WithMetrics(txMetrics))
	}
	app.TxManager = postgres.NewTxManager(pool, app.Metrics, observability.ForComponent(logger, "postgres"), txOpts...)

	services := di.NewCollection(di.WithLogger(observability.ForComponent(logger, "di")))
	RegisterServices(services, ServiceDeps{
		Pool:      pool,
		TxManager: app.TxManager,
		Metrics:   app.Metrics,
		Logger:    logger,
		CounterConfig: service.CounterServiceConfig{
			Timeout: cfg.Transactions.Timeout,
			Retry: retry.Config{
				MaxAttempts:  cfg.Retry.MaxAttempts,
				InitialDelay: cfg.Retry.InitialDelay,
				MaxDelay:     cfg.Retry.MaxDelay,
			},
		},
	})
	app.Services = services.Build()

	return app, nil
}

func (a *App) Close(ctx context.Context) {
	a.Pool.Close()
	a.shutdownTracer(ctx)
}

func (a *App) shutdownTracer(ctx context.Context) {
	if a.tracer == nil {
		return
	}
	if err := observability.Shutdown(ctx, a.tracer); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to flush traces")
	}
}
