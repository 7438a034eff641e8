package transactions

import (
	"context"
	"fmt"
	"time"

	extErrors "github.com/saintber/extensions/pkg/errors"
)

// Transaction runs fn in a RepeatableRead scope bounded by timeout. A zero
// timeout runs under the manager's maximum; a negative one is rejected. The scope is completed
// only if fn returns nil and is released on every path, including panics.
func (m *Manager) Transaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if fn == nil {
		return extErrors.NewArgumentError("fn")
	}
	_, err := TransactionResult(ctx, m, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithTransaction runs fn under the manager's default timeout.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Transaction(ctx, m.DefaultTimeout(), fn)
}

// TransactionResult is Transaction for functions that return a value. The
// value is returned only if the transaction commits (or, for a joined scope,
// completes).
func TransactionResult[T any](ctx context.Context, m *Manager, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if m == nil {
		return zero, extErrors.NewArgumentError("manager")
	}
	if fn == nil {
		return zero, extErrors.NewArgumentError("fn")
	}

	txCtx, scope, err := m.BeginScope(ctx, Options{Isolation: RepeatableRead, Timeout: timeout})
	if err != nil {
		return zero, err
	}
	defer scope.Close()

	result, err := fn(txCtx)
	if err != nil {
		if closeErr := scope.Close(); closeErr != nil {
			return zero, fmt.Errorf("rollback failed (%v) after error: %w", closeErr, err)
		}
		return zero, err
	}

	scope.Complete()
	if err := scope.Close(); err != nil {
		return zero, err
	}
	return result, nil
}
