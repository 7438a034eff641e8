package di

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
	extErrors "github.com/saintber/extensions/pkg/errors"
)

// Resolver looks up service instances by type.
type Resolver interface {
	Resolve(t reflect.Type) (any, error)
}

// Factory builds a service instance. r resolves the factory's own
// dependencies within the scope that requested the service.
type Factory func(r Resolver) (any, error)

// Descriptor describes one service registration.
type Descriptor struct {
	ServiceType reflect.Type
	Lifetime    Lifetime
	Factory     Factory

	// AliasOf is the implementation type an alias delegates to, nil otherwise.
	AliasOf reflect.Type
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger used by the collection and the providers it builds.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// Collection is an ordered list of service registrations.
type Collection struct {
	mu          sync.RWMutex
	descriptors []Descriptor
	logger      zerolog.Logger
}

// NewCollection creates an empty collection.
func NewCollection(opts ...Option) *Collection {
	c := &Collection{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends d unconditionally. When a type is registered more than once
// the last registration wins at resolve time.
func (c *Collection) Add(d Descriptor) *Collection {
	mustBeValid(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors = append(c.descriptors, d)
	c.logRegistered(d)
	return c
}

// TryAdd appends d only if no registration exists for d.ServiceType.
func (c *Collection) TryAdd(d Descriptor) {
	mustBeValid(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(d.ServiceType) >= 0 {
		c.logger.Debug().
			Str("service", d.ServiceType.String()).
			Msg("Service already registered, skipping")
		return
	}
	c.descriptors = append(c.descriptors, d)
	c.logRegistered(d)
}

// Contains reports whether t has at least one registration.
func (c *Collection) Contains(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(t) >= 0
}

// Len returns the number of registrations.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

// Descriptors returns a copy of all registrations in insertion order.
func (c *Collection) Descriptors() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Build snapshots the collection into a Provider. Later changes to the
// collection do not affect providers already built.
func (c *Collection) Build() *Provider {
	return newProvider(c.Descriptors(), c.logger)
}

// indexOf must be called with mu held.
func (c *Collection) indexOf(t reflect.Type) int {
	for i := len(c.descriptors) - 1; i >= 0; i-- {
		if c.descriptors[i].ServiceType == t {
			return i
		}
	}
	return -1
}

func (c *Collection) logRegistered(d Descriptor) {
	evt := c.logger.Debug().
		Str("service", d.ServiceType.String()).
		Stringer("lifetime", d.Lifetime)
	if d.AliasOf != nil {
		evt = evt.Str("alias_of", d.AliasOf.String())
	}
	evt.Msg("Service registered")
}

func mustBeValid(d Descriptor) {
	if d.ServiceType == nil {
		panic(extErrors.NewArgumentError("ServiceType"))
	}
	if d.Factory == nil {
		panic(extErrors.NewArgumentError("Factory"))
	}
	if d.Lifetime < Transient || d.Lifetime > Singleton {
		panic(fmt.Sprintf("di: unknown lifetime %d for %s", d.Lifetime, d.ServiceType))
	}
}

// AddTransient registers T with a transient lifetime.
func AddTransient[T any](c *Collection, factory func(r Resolver) (T, error)) *Collection {
	return c.Add(descriptorFor(Transient, factory))
}

// AddScoped registers T with a scoped lifetime.
func AddScoped[T any](c *Collection, factory func(r Resolver) (T, error)) *Collection {
	return c.Add(descriptorFor(Scoped, factory))
}

// AddSingleton registers T with a singleton lifetime.
func AddSingleton[T any](c *Collection, factory func(r Resolver) (T, error)) *Collection {
	return c.Add(descriptorFor(Singleton, factory))
}

// AddInstance registers a pre-built value as a singleton.
func AddInstance[T any](c *Collection, instance T) *Collection {
	return AddSingleton(c, func(Resolver) (T, error) { return instance, nil })
}

// TryAddTransient registers T as transient unless T is already registered.
func TryAddTransient[T any](c *Collection, factory func(r Resolver) (T, error)) {
	c.TryAdd(descriptorFor(Transient, factory))
}

// TryAddScoped registers T as scoped unless T is already registered.
func TryAddScoped[T any](c *Collection, factory func(r Resolver) (T, error)) {
	c.TryAdd(descriptorFor(Scoped, factory))
}

// TryAddSingleton registers T as singleton unless T is already registered.
func TryAddSingleton[T any](c *Collection, factory func(r Resolver) (T, error)) {
	c.TryAdd(descriptorFor(Singleton, factory))
}

func descriptorFor[T any](lifetime Lifetime, factory func(r Resolver) (T, error)) Descriptor {
	if factory == nil {
		panic(extErrors.NewArgumentError("factory"))
	}
	return Descriptor{
		ServiceType: reflect.TypeFor[T](),
		Lifetime:    lifetime,
		Factory: func(r Resolver) (any, error) {
			return factory(r)
		},
	}
}
