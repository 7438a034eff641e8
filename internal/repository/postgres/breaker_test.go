package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/pkg/transactions"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	calls int
	err   error
}

func (d *stubDriver) Begin(ctx context.Context, isolation transactions.IsolationLevel) (transactions.Tx, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return stubTx{}, nil
}

type stubTx struct{}

func (stubTx) Commit(context.Context) error   { return nil }
func (stubTx) Rollback(context.Context) error { return nil }

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

func TestBreakerDriver_PassesThrough(t *testing.T) {
	next := &stubDriver{}
	d := NewBreakerDriver(next, testBreakerSettings(), nil, zerolog.Nop())

	tx, err := d.Begin(context.Background(), transactions.RepeatableRead)

	require.NoError(t, err)
	assert.NotNil(t, tx)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, gobreaker.StateClosed, d.State())
}

func TestBreakerDriver_OpensAfterFailures(t *testing.T) {
	next := &stubDriver{err: errors.New("connection refused")}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	d := NewBreakerDriver(next, testBreakerSettings(), metrics, zerolog.Nop())

	for range 3 {
		_, err := d.Begin(context.Background(), transactions.RepeatableRead)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, d.State())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test")))

	_, err := d.Begin(context.Background(), transactions.RepeatableRead)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, next.calls, "an open breaker does not reach the database")
}

func TestBreakerDriver_IgnoresContextErrors(t *testing.T) {
	next := &stubDriver{err: context.DeadlineExceeded}
	d := NewBreakerDriver(next, testBreakerSettings(), nil, zerolog.Nop())

	for range 5 {
		_, err := d.Begin(context.Background(), transactions.RepeatableRead)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	assert.Equal(t, gobreaker.StateClosed, d.State())
	assert.Equal(t, 5, next.calls)
}

func TestBreakerDriver_ManagerWrapsOpenState(t *testing.T) {
	next := &stubDriver{err: errors.New("connection refused")}
	d := NewBreakerDriver(next, testBreakerSettings(), nil, zerolog.Nop())
	m := transactions.NewManager(d)

	for range 3 {
		_ = m.Transaction(context.Background(), time.Second, func(ctx context.Context) error { return nil })
	}
	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		t.Fatal("fn must not run without a transaction")
		return nil
	})

	assert.True(t, IsUnavailable(err))
}
