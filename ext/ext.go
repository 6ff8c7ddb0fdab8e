package ext

import (
	"context"
	"time"

	"github.com/xraph/runlock/job"
	"github.com/xraph/runlock/lock"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobStarted is called when an attempt begins executing.
type JobStarted interface {
	OnJobStarted(ctx context.Context, jc *job.Context) error
}

// JobCompleted is called after an execution finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, jc *job.Context, res *job.Result) error
}

// JobFailed is called when an execution fails terminally (all attempts
// exhausted).
type JobFailed interface {
	OnJobFailed(ctx context.Context, jc *job.Context, res *job.Result) error
}

// JobRetrying is called when an attempt fails but attempts remain.
// delay is how long the runner will wait before the next attempt.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, jc *job.Context, res *job.Result, delay time.Duration) error
}

// JobSkipped is called when a run is skipped without executing: the job
// is disabled, has no registered handler, or its lock is held elsewhere.
type JobSkipped interface {
	OnJobSkipped(ctx context.Context, jobID, reason string) error
}

// JobDLQ is called after an execution is recorded in the dead letter queue.
type JobDLQ interface {
	OnJobDLQ(ctx context.Context, jc *job.Context, res *job.Result) error
}

// ──────────────────────────────────────────────────
// Lock lifecycle hooks
// ──────────────────────────────────────────────────

// LockAcquired is called after an exclusive lock is acquired.
type LockAcquired interface {
	OnLockAcquired(ctx context.Context, h *lock.Handle) error
}

// LockReleased is called after an exclusive lock is given back.
type LockReleased interface {
	OnLockReleased(ctx context.Context, h *lock.Handle) error
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// Shutdown is called when the runner shuts down gracefully.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
