package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/runlock/job"
)

// Recover returns middleware that recovers from panics in the handler
// chain. A panic is logged with a stack trace and normalized into a
// failed Result carrying the panic message, so downstream accounting
// never sees a raw panic.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, jc *job.Context, next Handler) (res *job.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job handler panicked",
					slog.String("job_id", jc.JobID),
					slog.String("execution_id", jc.ExecutionID.String()),
					slog.Int("attempt", jc.Attempt),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				res = job.Failed(0, fmt.Sprintf("panic in job %s: %v", jc.JobID, r))
				err = nil
			}
		}()
		return next(ctx)
	}
}
