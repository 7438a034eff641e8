package transactions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	extErrors "github.com/saintber/extensions/pkg/errors"
	"github.com/saintber/extensions/pkg/transactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionResult_CommitsOnSuccess(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	got, err := transactions.TransactionResult(context.Background(), m, time.Second, func(ctx context.Context) (int, error) {
		_, ok := transactions.FromContext(ctx)
		assert.True(t, ok)
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"begin:repeatable read", "commit"}, driver.Events())
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)
	boom := errors.New("boom")

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		return boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestTransactionResult_DiscardsValueOnError(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{})

	got, err := transactions.TransactionResult(context.Background(), m, time.Second, func(ctx context.Context) (string, error) {
		return "partial", errors.New("boom")
	})

	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestTransaction_RollbackFailureIsReported(t *testing.T) {
	boom := errors.New("boom")
	driver := &fakeDriver{RollbackErr: errors.New("connection lost")}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	assert.Panics(t, func() {
		_ = m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
			panic("kaboom")
		})
	})
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestTransaction_TimeoutAborts(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, extErrors.ErrTransactionAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestWithTransaction_UsesDefaultTimeout(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{},
		transactions.WithDefaultTimeout(time.Hour),
		transactions.WithMaxTimeout(2*time.Hour))
	assert.Equal(t, time.Hour, m.DefaultTimeout())

	err := m.WithTransaction(context.Background(), func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)
		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_ZeroTimeoutUsesMaxTimeout(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{}, transactions.WithMaxTimeout(3*time.Hour))

	err := m.Transaction(context.Background(), 0, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(3*time.Hour), deadline, time.Minute)
		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_TimeoutCappedAtMax(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{}, transactions.WithMaxTimeout(time.Minute))

	err := m.Transaction(context.Background(), time.Hour, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 10*time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_NegativeTimeoutRejected(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)
	called := false

	err := m.Transaction(context.Background(), -time.Second, func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, extErrors.ErrInvalidArgument)
	var argErr *extErrors.ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "timeout", argErr.Param)
	assert.False(t, called)
	assert.Empty(t, driver.Events())
}

func TestNewManager_DefaultTimeout(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{}, transactions.WithDefaultTimeout(0), transactions.WithMaxTimeout(0))
	assert.Equal(t, transactions.DefaultTimeout, m.DefaultTimeout())
	assert.Equal(t, transactions.MaxTimeout, m.MaxTimeout())
}

func TestNewManager_DefaultTimeoutNeverExceedsMax(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{},
		transactions.WithDefaultTimeout(time.Hour),
		transactions.WithMaxTimeout(time.Minute))
	assert.Equal(t, time.Minute, m.DefaultTimeout())
}

func TestTransaction_BeginFailure(t *testing.T) {
	driver := &fakeDriver{BeginErr: errors.New("pool exhausted")}
	m := transactions.NewManager(driver)
	called := false

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx: pool exhausted")
	assert.False(t, called)
}

func TestTransaction_CommitFailure(t *testing.T) {
	driver := &fakeDriver{CommitErr: errors.New("could not serialize access")}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	assert.NotErrorIs(t, err, extErrors.ErrTransactionAborted)
}

func TestTransaction_NestedJoinsAmbient(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		outer, _ := transactions.FromContext(ctx)
		return m.Transaction(ctx, time.Second, func(ctx context.Context) error {
			inner, ok := transactions.FromContext(ctx)
			require.True(t, ok)
			assert.Same(t, outer, inner)
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"begin:repeatable read", "commit"}, driver.Events())
}

func TestTransaction_NestedFailureDoomsOuter(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)
	boom := errors.New("boom")

	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		innerErr := m.Transaction(ctx, time.Second, func(ctx context.Context) error {
			return boom
		})
		assert.Same(t, boom, innerErr)

		// a doomed transaction cannot be joined again
		_, _, err := m.BeginScope(ctx, transactions.Options{Isolation: transactions.RepeatableRead})
		assert.ErrorIs(t, err, extErrors.ErrTransactionAborted)

		// swallow the inner error; the outer scope still must not commit
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, extErrors.ErrTransactionAborted)
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestTransaction_NestedTimeoutDoomsOuter(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), time.Minute, func(ctx context.Context) error {
		return m.Transaction(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, extErrors.ErrTransactionAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestTransactionResult_NestedTimeoutDiscardsValue(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	err := m.Transaction(context.Background(), time.Minute, func(ctx context.Context) error {
		got, innerErr := transactions.TransactionResult(ctx, m, 10*time.Millisecond, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 7, nil
		})
		assert.Zero(t, got)
		assert.ErrorIs(t, innerErr, extErrors.ErrTransactionAborted)

		// the outer work carries on, but the transaction must not commit
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, extErrors.ErrTransactionAborted)
	assert.Equal(t, []string{"begin:repeatable read", "rollback"}, driver.Events())
}

func TestTransaction_FinishedContextStartsNewTransaction(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	var leaked context.Context
	var first transactions.Tx
	err := m.Transaction(context.Background(), time.Second, func(ctx context.Context) error {
		leaked = context.WithoutCancel(ctx)
		first, _ = transactions.FromContext(ctx)
		return nil
	})
	require.NoError(t, err)

	_, ok := transactions.FromContext(leaked)
	assert.False(t, ok)

	err = m.Transaction(leaked, time.Second, func(ctx context.Context) error {
		second, ok := transactions.FromContext(ctx)
		require.True(t, ok)
		assert.NotSame(t, first, second)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"begin:repeatable read", "commit",
		"begin:repeatable read", "commit",
	}, driver.Events())
}

func TestTransaction_IsolationConflict(t *testing.T) {
	driver := &fakeDriver{}
	m := transactions.NewManager(driver)

	ctx, scope, err := m.BeginScope(context.Background(), transactions.Options{
		Isolation: transactions.ReadCommitted,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	defer scope.Close()

	called := false
	err = m.Transaction(ctx, time.Second, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, extErrors.ErrIsolationConflict)
	assert.False(t, called)
}

func TestTransaction_NilArguments(t *testing.T) {
	m := transactions.NewManager(&fakeDriver{})

	err := m.Transaction(context.Background(), time.Second, nil)
	assert.ErrorIs(t, err, extErrors.ErrInvalidArgument)

	_, err = transactions.TransactionResult[int](context.Background(), nil, time.Second, func(context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, extErrors.ErrInvalidArgument)

	_, err = transactions.TransactionResult[int](context.Background(), m, time.Second, nil)
	assert.ErrorIs(t, err, extErrors.ErrInvalidArgument)
}

func TestFromContext_Absent(t *testing.T) {
	_, ok := transactions.FromContext(context.Background())
	assert.False(t, ok)
}

func TestIsolationLevel_String(t *testing.T) {
	assert.Equal(t, "read uncommitted", transactions.ReadUncommitted.String())
	assert.Equal(t, "read committed", transactions.ReadCommitted.String())
	assert.Equal(t, "repeatable read", transactions.RepeatableRead.String())
	assert.Equal(t, "serializable", transactions.Serializable.String())
	assert.Equal(t, "unknown", transactions.IsolationLevel(99).String())
}
