package service

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/saintber/extensions/internal/domain/errors"
	"github.com/saintber/extensions/pkg/retry"
	"github.com/saintber/extensions/pkg/transactions"
)

// retryingTransaction runs fn in a RepeatableRead transaction and starts the
// whole transaction over when it loses a write conflict to another one.
func retryingTransaction[T any](
	ctx context.Context,
	txManager *transactions.Manager,
	timeout time.Duration,
	cfg retry.Config,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	cfg.RetryIf = isWriteConflict
	return retry.DoWithResult(ctx, cfg, func() (T, error) {
		return transactions.TransactionResult(ctx, txManager, timeout, fn)
	})
}

// isWriteConflict reports whether err means a concurrent transaction won.
func isWriteConflict(err error) bool {
	return transactions.IsSerializationFailure(err) || errors.Is(err, domainErrors.ErrOptimisticLockFailed)
}
