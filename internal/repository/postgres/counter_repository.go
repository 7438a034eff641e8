package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saintber/extensions/internal/domain/counter"
	domainErrors "github.com/saintber/extensions/internal/domain/errors"
)

// CounterRepository implements counter.Repository using PostgreSQL.
type CounterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository creates a new CounterRepository.
func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

func (r *CounterRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func scanCounter(s scanner) (*counter.Counter, error) {
	c := &counter.Counter{}
	if err := s.Scan(&c.Name, &c.Value, &c.Version, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrCounterNotFound
		}
		return nil, fmt.Errorf("scan counter: %w", err)
	}
	return c, nil
}

// Get retrieves a counter by name.
func (r *CounterRepository) Get(ctx context.Context, name string) (*counter.Counter, error) {
	return scanCounter(r.db(ctx).QueryRow(ctx,
		`SELECT name, value, version, updated_at FROM counters WHERE name = $1`, name))
}

// List returns every counter ordered by name.
func (r *CounterRepository) List(ctx context.Context) ([]*counter.Counter, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT name, value, version, updated_at FROM counters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	var counters []*counter.Counter
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}
	return counters, nil
}

// Save inserts the counter or updates it if the stored version is the one it was read at.
func (r *CounterRepository) Save(ctx context.Context, c *counter.Counter) error {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO counters (name, value, version, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE
		 SET value = EXCLUDED.value, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
		 WHERE counters.version = EXCLUDED.version - 1`,
		c.Name, c.Value, c.Version, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOptimisticLockFailed
	}
	return nil
}

// Delete removes a counter.
func (r *CounterRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM counters WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrCounterNotFound
	}
	return nil
}
