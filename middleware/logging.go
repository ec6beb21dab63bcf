package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/Legatia/DeFlow-sub000/dispatcher"
)

// Logging returns middleware that logs trigger start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req dispatcher.TriggerRequest, next Handler) error {
		logger.Info("trigger started",
			slog.String("schedule_id", req.ScheduleID.String()),
			slog.String("workflow_id", req.WorkflowID),
			slog.String("node_id", req.NodeID),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("trigger failed",
				slog.String("schedule_id", req.ScheduleID.String()),
				slog.String("workflow_id", req.WorkflowID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("trigger completed",
				slog.String("schedule_id", req.ScheduleID.String()),
				slog.String("workflow_id", req.WorkflowID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
