package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/Legatia/DeFlow-sub000/dispatcher"
)

// Recover returns middleware that recovers from panics in the trigger.
// Panics are converted to errors and logged with a stack trace, so a
// panicking trigger counts as a failed fire instead of killing the
// dispatch goroutine.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req dispatcher.TriggerRequest, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("trigger panicked",
					slog.String("schedule_id", req.ScheduleID.String()),
					slog.String("workflow_id", req.WorkflowID),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic firing schedule %s: %v", req.ScheduleID, r)
			}
		}()
		return next(ctx)
	}
}
