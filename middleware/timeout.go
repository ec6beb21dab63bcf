package middleware

import (
	"context"
	"time"

	"github.com/Legatia/DeFlow-sub000/dispatcher"
)

// Timeout returns middleware that enforces a per-fire execution deadline.
// When the deadline is exceeded the context is cancelled and the trigger
// should return context.DeadlineExceeded. A non-positive d disables the
// deadline.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ dispatcher.TriggerRequest, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
