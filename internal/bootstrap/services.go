package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/domain/counter"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/internal/repository/postgres"
	"github.com/saintber/extensions/internal/service"
	"github.com/saintber/extensions/pkg/di"
	"github.com/saintber/extensions/pkg/transactions"
)

// ServiceDeps are the long-lived objects the service registrations build on.
type ServiceDeps struct {
	Pool          *pgxpool.Pool
	TxManager     *transactions.Manager
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
	CounterConfig service.CounterServiceConfig
}

// RegisterServices adds the application services to services. The counter
// repository is only registered if services has none yet, so callers can
// register their own first.
func RegisterServices(services *di.Collection, deps ServiceDeps) *di.Collection {
	di.AddInstance(services, deps.TxManager)
	di.AddInstance(services, deps.Metrics)

	di.TryAddSingleton(services, func(di.Resolver) (*postgres.CounterRepository, error) {
		return postgres.NewCounterRepository(deps.Pool), nil
	})
	di.TryAddSingletonAlias[counter.Repository, *postgres.CounterRepository](services)

	logger := observability.ForComponent(deps.Logger, "counter")
	return di.AddScoped(services, func(r di.Resolver) (*service.CounterService, error) {
		repo, err := di.Resolve[counter.Repository](r)
		if err != nil {
			return nil, err
		}
		txManager, err := di.Resolve[*transactions.Manager](r)
		if err != nil {
			return nil, err
		}
		metrics, err := di.Resolve[*observability.Metrics](r)
		if err != nil {
			return nil, err
		}
		return service.NewCounterService(repo, txManager, deps.CounterConfig, metrics, logger), nil
	})
}
