// Package middleware provides composable middleware for the handler
// invocation path. Middleware wraps attempt execution synchronously and
// can modify it (recover from panics, log, record metrics, etc.).
package middleware

import (
	"context"

	"github.com/xraph/runlock/job"
)

// Handler is the terminal function that executes one attempt.
type Handler func(ctx context.Context) (*job.Result, error)

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the attempt's job context, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, jc *job.Context, next Handler) (*job.Result, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, metrics) executes as:
//
//	logging → recover → metrics → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, jc *job.Context, next Handler) (*job.Result, error) {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (*job.Result, error) {
				return mw(ctx, jc, prev)
			}
		}
		return h(ctx)
	}
}
