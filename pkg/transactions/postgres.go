package transactions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes a caller may retry.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// DBTX is the common query interface satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresDriver begins transactions on a pgx pool.
type PostgresDriver struct {
	pool *pgxpool.Pool
}

// NewPostgresDriver creates a driver backed by pool.
func NewPostgresDriver(pool *pgxpool.Pool) *PostgresDriver {
	return &PostgresDriver{pool: pool}
}

// Begin starts a transaction with the given isolation level.
func (d *PostgresDriver) Begin(ctx context.Context, isolation IsolationLevel) (Tx, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgIsoLevel(isolation)})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func pgIsoLevel(l IsolationLevel) pgx.TxIsoLevel {
	switch l {
	case ReadUncommitted:
		return pgx.ReadUncommitted
	case ReadCommitted:
		return pgx.ReadCommitted
	case Serializable:
		return pgx.Serializable
	default:
		return pgx.RepeatableRead
	}
}

// ConnFromContext returns the pgx transaction carried by ctx if present,
// otherwise the pool.
func ConnFromContext(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := FromContext(ctx); ok {
		if pgTx, ok := tx.(pgx.Tx); ok {
			return pgTx
		}
	}
	return pool
}

// IsSerializationFailure reports whether err is a PostgreSQL serialization
// failure or deadlock, the errors RepeatableRead transactions may hit under
// concurrent writes.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}
