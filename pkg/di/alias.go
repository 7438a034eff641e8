package di

import (
	"fmt"
	"reflect"
)

// AddTransientAlias registers S as a transient alias of the registered I.
func AddTransientAlias[S, I any](c *Collection) *Collection {
	return c.Add(aliasDescriptor[S, I](Transient))
}

// TryAddTransientAlias registers S as a transient alias of I unless S is
// already registered.
func TryAddTransientAlias[S, I any](c *Collection) {
	c.TryAdd(aliasDescriptor[S, I](Transient))
}

// AddScopedAlias registers S as a scoped alias of the registered I.
func AddScopedAlias[S, I any](c *Collection) *Collection {
	return c.Add(aliasDescriptor[S, I](Scoped))
}

// TryAddScopedAlias registers S as a scoped alias of I unless S is already
// registered.
func TryAddScopedAlias[S, I any](c *Collection) {
	c.TryAdd(aliasDescriptor[S, I](Scoped))
}

// AddSingletonAlias registers S as a singleton alias of the registered I.
func AddSingletonAlias[S, I any](c *Collection) *Collection {
	return c.Add(aliasDescriptor[S, I](Singleton))
}

// TryAddSingletonAlias registers S as a singleton alias of I unless S is
// already registered.
func TryAddSingletonAlias[S, I any](c *Collection) {
	c.TryAdd(aliasDescriptor[S, I](Singleton))
}

// aliasDescriptor panics if I is not assignable to S. The factory resolves I
// on every call, so I's own lifetime decides which instance comes back.
func aliasDescriptor[S, I any](lifetime Lifetime) Descriptor {
	service, impl := reflect.TypeFor[S](), reflect.TypeFor[I]()
	if !impl.AssignableTo(service) {
		panic(fmt.Sprintf("di: cannot alias %s to %s: %s is not assignable to %s", service, impl, impl, service))
	}

	return Descriptor{
		ServiceType: service,
		Lifetime:    lifetime,
		AliasOf:     impl,
		Factory: func(r Resolver) (any, error) {
			inst, err := Resolve[I](r)
			if err != nil {
				return nil, err
			}
			s, _ := any(inst).(S)
			return s, nil
		},
	}
}
