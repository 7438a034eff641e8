// Package transactions runs functions inside a database transaction that
// travels with the context.
//
// A Manager begins transactions through a Driver. The transaction is stored
// in the returned context; a scope begun from a context that already carries
// one joins it instead of starting a new one, so nested calls share a
// single commit.
//
//	err := manager.Transaction(ctx, 5*time.Second, func(ctx context.Context) error {
//	    return repo.Save(ctx, item) // repo uses ConnFromContext(ctx, pool)
//	})
//
// Transaction and TransactionResult always use RepeatableRead. The function
// runs under a context bounded by the timeout; if the deadline passes before
// the commit, the transaction is rolled back and errors.ErrTransactionAborted
// is returned. Errors from the function are returned unchanged after the
// rollback.
package transactions
