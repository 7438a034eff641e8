package transactions_test

import (
	"context"
	"sync"

	"github.com/saintber/extensions/pkg/transactions"
)

// fakeDriver records begin/commit/rollback calls in order.
type fakeDriver struct {
	mu     sync.Mutex
	events []string

	BeginErr    error
	CommitErr   error
	RollbackErr error
}

func (d *fakeDriver) Begin(ctx context.Context, isolation transactions.IsolationLevel) (transactions.Tx, error) {
	if d.BeginErr != nil {
		return nil, d.BeginErr
	}
	d.record("begin:" + isolation.String())
	return &fakeTx{driver: d}, nil
}

func (d *fakeDriver) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *fakeDriver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

type fakeTx struct {
	driver *fakeDriver
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.driver.CommitErr != nil {
		return t.driver.CommitErr
	}
	t.driver.record("commit")
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.driver.record("rollback")
	return t.driver.RollbackErr
}
