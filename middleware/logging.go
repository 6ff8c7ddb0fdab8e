package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/runlock/job"
)

// Logging returns middleware that logs attempt start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, jc *job.Context, next Handler) (*job.Result, error) {
		logger.Info("attempt started",
			slog.String("job_id", jc.JobID),
			slog.String("execution_id", jc.ExecutionID.String()),
			slog.Int("attempt", jc.Attempt),
		)

		start := time.Now()
		res, err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			logger.Error("attempt errored",
				slog.String("job_id", jc.JobID),
				slog.String("execution_id", jc.ExecutionID.String()),
				slog.Int("attempt", jc.Attempt),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		case res != nil && !res.Success:
			logger.Warn("attempt failed",
				slog.String("job_id", jc.JobID),
				slog.String("execution_id", jc.ExecutionID.String()),
				slog.Int("attempt", jc.Attempt),
				slog.Duration("elapsed", elapsed),
				slog.String("error", res.FirstError()),
			)
		default:
			logger.Info("attempt completed",
				slog.String("job_id", jc.JobID),
				slog.String("execution_id", jc.ExecutionID.String()),
				slog.Int("attempt", jc.Attempt),
				slog.Duration("elapsed", elapsed),
			)
		}

		return res, err
	}
}
