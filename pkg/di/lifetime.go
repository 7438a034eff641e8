package di

// Lifetime controls how long a resolved instance is reused.
type Lifetime int

const (
	// Transient services are built on every resolution.
	Transient Lifetime = iota
	// Scoped services are built once per Scope.
	Scoped
	// Singleton services are built once per Provider.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}
