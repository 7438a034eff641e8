package counter

import "context"

// Repository defines the interface for counter persistence
type Repository interface {
	// Get retrieves a counter by name
	Get(ctx context.Context, name string) (*Counter, error)

	// List returns every counter ordered by name
	List(ctx context.Context) ([]*Counter, error)

	// Save inserts a new counter or updates an existing one with optimistic locking
	Save(ctx context.Context, c *Counter) error

	// Delete removes a counter
	Delete(ctx context.Context, name string) error
}
