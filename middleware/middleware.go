// Package middleware provides composable middleware around trigger
// dispatch. Middleware wraps each Fire call synchronously and can modify
// execution (recover from panics, enforce deadlines, log, add tracing).
package middleware

import (
	"context"

	"github.com/Legatia/DeFlow-sub000/dispatcher"
)

// Handler is the terminal function that fires the trigger.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the trigger request being dispatched,
// and the next handler to call. Middleware MUST call next to continue the
// chain (unless short-circuiting on error).
type Middleware func(ctx context.Context, req dispatcher.TriggerRequest, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → trigger
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, req dispatcher.TriggerRequest, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, req, prev)
			}
		}
		return h(ctx)
	}
}

// Wrap returns a Trigger whose Fire calls pass through the given
// middleware before reaching t.
func Wrap(t dispatcher.Trigger, mws ...Middleware) dispatcher.Trigger {
	if len(mws) == 0 {
		return t
	}
	chain := Chain(mws...)
	return dispatcher.TriggerFunc(func(ctx context.Context, req dispatcher.TriggerRequest) error {
		return chain(ctx, req, func(ctx context.Context) error {
			return t.Fire(ctx, req)
		})
	})
}
