// Package di is a small dependency-injection registry with transient, scoped
// and singleton lifetimes, plus alias registration.
//
// # Registering services
//
//	services := di.NewCollection(di.WithLogger(logger))
//	di.AddSingleton(services, func(r di.Resolver) (*postgres.CounterRepository, error) {
//	    return postgres.NewCounterRepository(pool), nil
//	})
//
// # Aliases
//
// An alias makes an abstraction resolve to whatever an existing concrete
// registration currently resolves to. The concrete type keeps its own
// lifetime: aliasing a singleton as scoped still yields the singleton.
//
//	di.AddScopedAlias[counter.Repository, *postgres.CounterRepository](services)
//
// The alias is resolved lazily, so the concrete registration may be added
// after the alias. If it is still missing at resolve time, resolution fails
// with errors.ErrMissingRegistration.
//
// The TryAdd variants register only when the service type has no
// registration yet and, unlike the Add variants, return nothing.
//
// # Resolving
//
//	provider := services.Build()
//	scope := provider.CreateScope()
//	repo, err := di.Resolve[counter.Repository](scope)
//
// ScopeMiddleware opens one scope per HTTP request and stores it in the
// request context.
package di
