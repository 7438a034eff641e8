package counter

import (
	"regexp"
	"time"

	"github.com/saintber/extensions/internal/domain/errors"
)

const MaxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

type Counter struct {
	Name      string
	Value     int64
	Version   int // Optimistic locking
	UpdatedAt time.Time
}

// ValidateName checks that name is usable as a counter key.
func ValidateName(name string) error {
	if name == "" {
		return errors.NewValidationError("name", "cannot be empty")
	}
	if len(name) > MaxNameLength {
		return errors.NewValidationError("name", "is too long")
	}
	if !namePattern.MatchString(name) {
		return errors.NewValidationError("name", "must be lowercase alphanumeric, '_', '.' or '-'")
	}
	return nil
}

func NewCounter(name string) (*Counter, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Counter{
		Name:      name,
		UpdatedAt: time.Now(),
	}, nil
}

// Add applies delta to the counter value.
func (c *Counter) Add(delta int64) error {
	if delta == 0 {
		return errors.ErrInvalidDelta
	}
	c.Value += delta
	c.Version++
	c.UpdatedAt = time.Now()
	return nil
}
