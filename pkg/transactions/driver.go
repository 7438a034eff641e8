package transactions

import (
	"context"
	"sync/atomic"
)

// Tx is a transaction begun by a Driver.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Driver begins transactions on the underlying database.
type Driver interface {
	Begin(ctx context.Context, isolation IsolationLevel) (Tx, error)
}

// ctxKey is an unexported type for context keys in this package.
type ctxKey int

const ambientKey ctxKey = iota

// ambient is the transaction shared by every scope of one context chain.
type ambient struct {
	tx        Tx
	isolation IsolationLevel
	doomed    atomic.Bool
	// ended is set once the root scope has committed or rolled back.
	ended atomic.Bool
}

// ambientFrom returns the live transaction carried by ctx. A transaction
// whose root scope has finished is treated as absent.
func ambientFrom(ctx context.Context) (*ambient, bool) {
	a, ok := ctx.Value(ambientKey).(*ambient)
	if !ok || a.ended.Load() {
		return nil, false
	}
	return a, true
}

// FromContext returns the transaction carried by ctx, if any. A context that
// outlived its transaction carries none.
func FromContext(ctx context.Context) (Tx, bool) {
	a, ok := ambientFrom(ctx)
	if !ok {
		return nil, false
	}
	return a.tx, true
}
