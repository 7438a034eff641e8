// Package linq provides sequential helpers over slices that mirror the
// familiar Select/ForEach query operators.
//
// Elements are always visited one at a time in index order. The first error
// stops the pass; no element after the failing one is touched.
package linq

import (
	"context"

	extErrors "github.com/saintber/extensions/pkg/errors"
)

// SelectAsync applies selector to every element of source in order and
// collects the results. Each call completes before the next one starts.
// If selector fails, the results gathered so far are discarded and the
// selector's error is returned unchanged.
func SelectAsync[S, R any](ctx context.Context, source []S, selector func(ctx context.Context, item S) (R, error)) ([]R, error) {
	if source == nil {
		return nil, extErrors.NewArgumentError("source")
	}
	if selector == nil {
		return nil, extErrors.NewArgumentError("selector")
	}

	results := make([]R, 0, len(source))
	for _, item := range source {
		result, err := selector(ctx, item)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ForEach invokes action on every element of source in order and returns
// source itself so calls can be chained.
func ForEach[S any](source []S, action func(item S) error) ([]S, error) {
	if source == nil {
		return nil, extErrors.NewArgumentError("source")
	}
	if action == nil {
		return nil, extErrors.NewArgumentError("action")
	}

	for _, item := range source {
		if err := action(item); err != nil {
			return nil, err
		}
	}
	return source, nil
}

// ForEachAsync is ForEach for context-aware actions. ctx is checked before
// each element; once it is done the pass stops with an error matching both
// errors.ErrOperationCancelled and ctx.Err(). An action already running is
// not interrupted.
func ForEachAsync[S any](ctx context.Context, source []S, action func(ctx context.Context, item S) error) ([]S, error) {
	if source == nil {
		return nil, extErrors.NewArgumentError("source")
	}
	if action == nil {
		return nil, extErrors.NewArgumentError("action")
	}

	for _, item := range source {
		if err := ctx.Err(); err != nil {
			return nil, extErrors.Cancelled(err)
		}
		if err := action(ctx, item); err != nil {
			return nil, err
		}
	}
	return source, nil
}
