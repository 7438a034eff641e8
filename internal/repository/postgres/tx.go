package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	"github.com/saintber/extensions/pkg/transactions"
)

// DBTX is the common query interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX = transactions.DBTX

// scanner is implemented by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// NewTxManager creates a transaction manager whose scopes begin pgx
// transactions on pool behind a circuit breaker. metrics may be nil.
func NewTxManager(pool *pgxpool.Pool, metrics *observability.Metrics, logger zerolog.Logger, opts ...transactions.ManagerOption) *transactions.Manager {
	driver := NewBreakerDriver(transactions.NewPostgresDriver(pool), DefaultBreakerSettings(), metrics, logger)
	return transactions.NewManager(driver, opts...)
}

// ConnFromCtx returns the ambient transaction from context if present, otherwise the pool.
func ConnFromCtx(ctx context.Context, pool *pgxpool.Pool) DBTX {
	return transactions.ConnFromContext(ctx, pool)
}
