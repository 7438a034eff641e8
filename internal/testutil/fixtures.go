package testutil

import (
	"time"

	"github.com/saintber/extensions/internal/domain/counter"
)

// NewTestCounter returns a persisted-looking counter with the given value.
func NewTestCounter(name string, value int64) *counter.Counter {
	return &counter.Counter{
		Name:      name,
		Value:     value,
		Version:   1,
		UpdatedAt: time.Now(),
	}
}
