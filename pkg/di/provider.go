package di

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	extErrors "github.com/saintber/extensions/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// registration is a descriptor plus its position in the collection, which
// keys the instance caches.
type registration struct {
	Descriptor
	index int
}

// Provider resolves services built from a Collection. It owns singleton
// instances; resolving directly from a Provider uses its root scope.
//
// Singletons are built one at a time under a provider-wide lock that the
// building call path re-enters for the singletons it depends on, so
// goroutines resolving mutually dependent singletons report
// errors.ErrCircularDependency instead of waiting on each other. A singleton
// factory must not block on another goroutine that resolves a singleton.
type Provider struct {
	registrations map[reflect.Type]registration
	logger        zerolog.Logger

	mu         sync.Mutex
	singletons map[int]any
	flight     singleflight.Group
	buildMu    sync.Mutex

	root *Scope
}

func newProvider(descriptors []Descriptor, logger zerolog.Logger) *Provider {
	p := &Provider{
		registrations: make(map[reflect.Type]registration, len(descriptors)),
		logger:        logger,
		singletons:    make(map[int]any),
	}
	// last registration for a type wins
	for i, d := range descriptors {
		p.registrations[d.ServiceType] = registration{Descriptor: d, index: i}
	}
	p.root = newScope(p)
	return p
}

// Resolve resolves t from the root scope.
func (p *Provider) Resolve(t reflect.Type) (any, error) {
	return p.root.Resolve(t)
}

// CreateScope opens a new scope for scoped services.
func (p *Provider) CreateScope() *Scope {
	s := newScope(p)
	p.logger.Debug().Str("scope_id", s.id.String()).Msg("Scope created")
	return s
}

// callPath is the state of one resolution call path.
type callPath struct {
	// types are the services currently being built, outermost first.
	types []reflect.Type
	// holdsBuild is set once the path holds Provider.buildMu.
	holdsBuild bool
}

func (c callPath) with(t reflect.Type) callPath {
	c.types = append(c.types[:len(c.types):len(c.types)], t)
	return c
}

// resolve looks up t for scope along path.
func (p *Provider) resolve(scope *Scope, t reflect.Type, path callPath) (any, error) {
	for _, seen := range path.types {
		if seen == t {
			return nil, fmt.Errorf("%w: %s", extErrors.ErrCircularDependency, formatChain(append(path.types, t)))
		}
	}

	reg, ok := p.registrations[t]
	if !ok {
		return nil, &extErrors.MissingRegistrationError{Service: t.String()}
	}

	next := path.with(t)

	switch reg.Lifetime {
	case Scoped:
		return scope.getOrBuild(reg, next)
	case Singleton:
		return p.singleton(reg, next)
	default:
		return p.build(scope, reg, next)
	}
}

func (p *Provider) singleton(reg registration, path callPath) (any, error) {
	if inst, ok := p.cachedSingleton(reg.index); ok {
		return inst, nil
	}
	if path.holdsBuild {
		return p.buildSingleton(reg, path)
	}

	inst, err, _ := p.flight.Do(strconv.Itoa(reg.index), func() (any, error) {
		p.buildMu.Lock()
		defer p.buildMu.Unlock()
		path.holdsBuild = true
		return p.buildSingleton(reg, path)
	})
	return inst, err
}

// buildSingleton must be called with buildMu held by path.
func (p *Provider) buildSingleton(reg registration, path callPath) (any, error) {
	if inst, ok := p.cachedSingleton(reg.index); ok {
		return inst, nil
	}
	// singletons never see scoped instances
	inst, err := p.build(p.root, reg, path)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.singletons[reg.index] = inst
	p.mu.Unlock()
	return inst, nil
}

func (p *Provider) cachedSingleton(index int) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.singletons[index]
	return inst, ok
}

func (p *Provider) build(scope *Scope, reg registration, path callPath) (any, error) {
	inst, err := reg.Factory(&resolution{scope: scope, path: path})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", reg.ServiceType, err)
	}
	return inst, nil
}

// Scope owns the instances of scoped services resolved through it.
type Scope struct {
	id       uuid.UUID
	provider *Provider

	mu        sync.Mutex
	instances map[int]any
}

func newScope(p *Provider) *Scope {
	return &Scope{
		id:        uuid.New(),
		provider:  p,
		instances: make(map[int]any),
	}
}

// ID identifies the scope in logs.
func (s *Scope) ID() uuid.UUID {
	return s.id
}

// Resolve resolves t within this scope.
func (s *Scope) Resolve(t reflect.Type) (any, error) {
	return s.provider.resolve(s, t, callPath{})
}

// getOrBuild builds outside the lock so factories may resolve other scoped
// services of the same scope. If two goroutines race, the first stored
// instance wins.
func (s *Scope) getOrBuild(reg registration, path callPath) (any, error) {
	s.mu.Lock()
	inst, ok := s.instances[reg.index]
	s.mu.Unlock()
	if ok {
		return inst, nil
	}

	built, err := s.provider.build(s, reg, path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[reg.index]; ok {
		return inst, nil
	}
	s.instances[reg.index] = built
	return built, nil
}

// resolution is the Resolver handed to factories.
type resolution struct {
	scope *Scope
	path  callPath
}

func (r *resolution) Resolve(t reflect.Type) (any, error) {
	return r.scope.provider.resolve(r.scope, t, r.path)
}

// Resolve resolves T and type-asserts the result.
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	if r == nil {
		return zero, extErrors.NewArgumentError("resolver")
	}

	t := reflect.TypeFor[T]()
	inst, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}
	if inst == nil {
		return zero, nil
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("di: %s resolved to %T", t, inst)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

func formatChain(chain []reflect.Type) string {
	names := make([]string, len(chain))
	for i, t := range chain {
		names[i] = t.String()
	}
	return strings.Join(names, " -> ")
}
