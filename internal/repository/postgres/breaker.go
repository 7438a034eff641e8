package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/pkg/transactions"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the circuit breaker in front of BEGIN.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state window after which counts reset
	Timeout      time.Duration // how long the breaker stays open
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings returns the settings used by the API.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "postgres",
		MaxRequests:  10,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerDriver guards a transactions.Driver with a circuit breaker so that
// transactions fail fast with gobreaker.ErrOpenState while the database
// keeps refusing BEGIN.
type BreakerDriver struct {
	next transactions.Driver
	cb   *gobreaker.CircuitBreaker[transactions.Tx]
}

// NewBreakerDriver wraps next. metrics may be nil.
func NewBreakerDriver(next transactions.Driver, s BreakerSettings, metrics *observability.Metrics, logger zerolog.Logger) *BreakerDriver {
	if metrics != nil {
		metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(float64(gobreaker.StateClosed))
	}
	return &BreakerDriver{
		next: next,
		cb: gobreaker.NewCircuitBreaker[transactions.Tx](gobreaker.Settings{
			Name:        s.Name,
			MaxRequests: s.MaxRequests,
			Interval:    s.Interval,
			Timeout:     s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
			},
			// A caller giving up is not a database fault.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("Circuit breaker state changed")
				if metrics != nil {
					metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		}),
	}
}

// Begin starts a transaction through the breaker.
func (d *BreakerDriver) Begin(ctx context.Context, isolation transactions.IsolationLevel) (transactions.Tx, error) {
	return d.cb.Execute(func() (transactions.Tx, error) {
		return d.next.Begin(ctx, isolation)
	})
}

// State returns the breaker's current state.
func (d *BreakerDriver) State() gobreaker.State {
	return d.cb.State()
}

// IsUnavailable reports whether err came from an open or saturated breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
