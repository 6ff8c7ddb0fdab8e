package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/runlock/job"
	"github.com/xraph/runlock/lock"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobSkippedEntry struct {
	name string
	hook JobSkipped
}

type jobDLQEntry struct {
	name string
	hook JobDLQ
}

type lockAcquiredEntry struct {
	name string
	hook LockAcquired
}

type lockReleasedEntry struct {
	name string
	hook LockReleased
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobStarted   []jobStartedEntry
	jobCompleted []jobCompletedEntry
	jobFailed    []jobFailedEntry
	jobRetrying  []jobRetryingEntry
	jobSkipped   []jobSkippedEntry
	jobDLQ       []jobDLQEntry
	lockAcquired []lockAcquiredEntry
	lockReleased []lockReleasedEntry
	shutdown     []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, h})
	}
	if h, ok := e.(JobSkipped); ok {
		r.jobSkipped = append(r.jobSkipped, jobSkippedEntry{name, h})
	}
	if h, ok := e.(JobDLQ); ok {
		r.jobDLQ = append(r.jobDLQ, jobDLQEntry{name, h})
	}
	if h, ok := e.(LockAcquired); ok {
		r.lockAcquired = append(r.lockAcquired, lockAcquiredEntry{name, h})
	}
	if h, ok := e.(LockReleased); ok {
		r.lockReleased = append(r.lockReleased, lockReleasedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, jc *job.Context) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, jc); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, jc *job.Context, res *job.Result) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, jc, res); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, jc *job.Context, res *job.Result) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, jc, res); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, jc *job.Context, res *job.Result, delay time.Duration) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, jc, res, delay); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobSkipped notifies all extensions that implement JobSkipped.
func (r *Registry) EmitJobSkipped(ctx context.Context, jobID, reason string) {
	for _, e := range r.jobSkipped {
		if err := e.hook.OnJobSkipped(ctx, jobID, reason); err != nil {
			r.logHookError("OnJobSkipped", e.name, err)
		}
	}
}

// EmitJobDLQ notifies all extensions that implement JobDLQ.
func (r *Registry) EmitJobDLQ(ctx context.Context, jc *job.Context, res *job.Result) {
	for _, e := range r.jobDLQ {
		if err := e.hook.OnJobDLQ(ctx, jc, res); err != nil {
			r.logHookError("OnJobDLQ", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Lock event emitters
// ──────────────────────────────────────────────────

// EmitLockAcquired notifies all extensions that implement LockAcquired.
func (r *Registry) EmitLockAcquired(ctx context.Context, h *lock.Handle) {
	for _, e := range r.lockAcquired {
		if err := e.hook.OnLockAcquired(ctx, h); err != nil {
			r.logHookError("OnLockAcquired", e.name, err)
		}
	}
}

// EmitLockReleased notifies all extensions that implement LockReleased.
func (r *Registry) EmitLockReleased(ctx context.Context, h *lock.Handle) {
	for _, e := range r.lockReleased {
		if err := e.hook.OnLockReleased(ctx, h); err != nil {
			r.logHookError("OnLockReleased", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
