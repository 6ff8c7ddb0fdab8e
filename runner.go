package runlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/runlock/alert"
	"github.com/xraph/runlock/backoff"
	"github.com/xraph/runlock/dlq"
	"github.com/xraph/runlock/ext"
	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/job"
	"github.com/xraph/runlock/lock"
	"github.com/xraph/runlock/middleware"
	"github.com/xraph/runlock/store"
)

// Skip reasons surfaced through the JobSkipped hook and skip metrics.
const (
	SkipDisabled  = "disabled"
	SkipNoHandler = "no_handler"
	SkipLocked    = "locked"
	SkipLockError = "lock_error"
)

// Runner orchestrates job executions: handler lookup, exclusive locking,
// the attempt loop with timeout and backoff, dead-lettering, alerting,
// statistics, and lifecycle events.
//
// Create one with New and functional options. Each Runner owns its own
// handler registry and statistics — two runners share nothing but the
// backing store.
type Runner struct {
	cfg        Config
	logger     *slog.Logger
	st         store.Store
	registry   *job.Registry
	locks      *lock.Manager
	dlqService *dlq.Service
	alerts     alert.Notifier
	extensions *ext.Registry
	mw         middleware.Middleware
	instanceID id.InstanceID
	tracker    *statsTracker

	// Option staging, consumed by New.
	userMW         []middleware.Middleware
	pendingExts    []ext.Extension
	autoRenewLocks bool

	shuttingDown atomic.Bool
	inFlight     sync.WaitGroup
}

// New creates a Runner backed by the given store.
func New(st store.Store, opts ...Option) (*Runner, error) {
	if st == nil {
		return nil, ErrNoStore
	}

	r := &Runner{
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
		st:       st,
		registry: job.NewRegistry(),
		tracker:  newStatsTracker(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.instanceID.IsNil() {
		r.instanceID = id.NewInstanceID()
	}
	if r.alerts == nil {
		r.alerts = alert.NewLogNotifier(r.logger)
	}

	lockOpts := []lock.Option{lock.WithLogger(r.logger)}
	if r.autoRenewLocks {
		lockOpts = append(lockOpts, lock.WithAutoRenew())
	}
	r.locks = lock.NewManager(st, r.instanceID, lockOpts...)
	r.dlqService = dlq.NewService(st)

	r.extensions = ext.NewRegistry(r.logger)
	for _, e := range r.pendingExts {
		r.extensions.Register(e)
	}
	r.pendingExts = nil

	chain := append([]middleware.Middleware{
		middleware.Logging(r.logger),
		middleware.Recover(r.logger),
	}, r.userMW...)
	r.mw = middleware.Chain(chain...)
	r.userMW = nil

	return r, nil
}

// Register binds a handler to a job ID on this runner's registry.
func (r *Runner) Register(jobID string, h job.HandlerFunc) {
	r.registry.Register(jobID, h)
}

// Registry returns the runner's handler registry.
func (r *Runner) Registry() *job.Registry { return r.registry }

// Extensions returns the runner's extension registry, for registering
// lifecycle extensions after construction.
func (r *Runner) Extensions() *ext.Registry { return r.extensions }

// DLQ returns the dead letter queue service.
func (r *Runner) DLQ() *dlq.Service { return r.dlqService }

// Store returns the backing store.
func (r *Runner) Store() store.Store { return r.st }

// InstanceID returns this runner's unique instance identifier.
func (r *Runner) InstanceID() id.InstanceID { return r.instanceID }

// Stats returns a snapshot of the process-local run statistics.
func (r *Runner) Stats() Stats { return r.tracker.snapshot() }

// ConsecutiveFailures returns the current failure streak for a job.
func (r *Runner) ConsecutiveFailures(jobID string) int { return r.tracker.streak(jobID) }

// Run executes one job according to its definition and returns the
// final Result.
//
// A nil Result with a nil error means the run was skipped: the job is
// disabled, has no registered handler, or another instance holds its
// lock. Skips are counted separately from failures and never alerted.
// Handler failures never surface as errors — they are normalized into
// the Result. A non-nil error indicates a runner-level rejection such
// as shutdown.
func (r *Runner) Run(ctx context.Context, def job.Definition) (*job.Result, error) {
	if r.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}
	r.inFlight.Add(1)
	defer r.inFlight.Done()

	if !def.Enabled {
		r.skip(ctx, def.ID, SkipDisabled)
		return nil, nil
	}
	handler, ok := r.registry.Get(def.ID)
	if !ok {
		r.skip(ctx, def.ID, SkipNoHandler)
		return nil, nil
	}

	executionID := id.NewExecutionID()

	if !def.Exclusive {
		return r.runAttempts(ctx, def, handler, executionID, nil), nil
	}

	// The lock must outlive a worst-case attempt plus bookkeeping.
	ttl := def.Timeout + r.cfg.LockTTLBuffer

	var (
		result *job.Result
		handle *lock.Handle
	)
	acquired, err := r.locks.WithLock(ctx, def.ID, ttl, func(lockCtx context.Context, h *lock.Handle) error {
		handle = h
		r.extensions.EmitLockAcquired(lockCtx, h)
		result = r.runAttempts(lockCtx, def, handler, executionID, h)
		if errors.Is(context.Cause(lockCtx), lock.ErrLockLost) {
			return lock.ErrLockLost
		}
		return nil
	})
	switch {
	case !acquired && err != nil:
		// Store unreachable: fail closed and skip this cycle rather
		// than run without exclusion.
		r.logger.Warn("lock acquisition failed, skipping run",
			slog.String("job_id", def.ID),
			slog.String("error", err.Error()),
		)
		r.skip(ctx, def.ID, SkipLockError)
		return nil, nil
	case !acquired:
		r.skip(ctx, def.ID, SkipLocked)
		return nil, nil
	}

	r.extensions.EmitLockReleased(ctx, handle)
	if err != nil && errors.Is(err, lock.ErrLockLost) {
		r.logger.Warn("lock lost during execution",
			slog.String("job_id", def.ID),
			slog.String("execution_id", executionID.String()),
		)
	}
	return result, nil
}

// Shutdown rejects new runs, waits for in-flight runs (bounded by ctx
// or Config.ShutdownTimeout), then best-effort releases held locks and
// notifies Shutdown extensions. In-flight attempts are not forcibly
// aborted. Safe to call more than once.
func (r *Runner) Shutdown(ctx context.Context) error {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		r.inFlight.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	// Release with an uncancelled context so the sweep still reaches
	// the store after the wait deadline fires.
	releaseCtx := context.WithoutCancel(ctx)
	r.locks.ReleaseAll(releaseCtx)
	r.extensions.EmitShutdown(releaseCtx)

	return waitErr
}

// ──────────────────────────────────────────────────
// Attempt loop
// ──────────────────────────────────────────────────

// runAttempts drives the retry loop for one execution. h is nil for
// non-exclusive jobs. Attempts are strictly serialized: attempt k+1
// never starts before attempt k's outcome is known.
func (r *Runner) runAttempts(ctx context.Context, def job.Definition, handler job.HandlerFunc, executionID id.ExecutionID, h *lock.Handle) *job.Result {
	strategy := r.backoffFor(def)
	maxAttempts := def.MaxAttempts()

	var (
		jc  *job.Context
		res *job.Result
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		jc = &job.Context{
			JobID:          def.ID,
			ExecutionID:    executionID,
			StartedAt:      time.Now().UTC(),
			Attempt:        attempt,
			PreviousResult: res,
		}
		if h != nil {
			jc.LockedBy = r.instanceID
			jc.FencingToken = h.FencingToken
		}

		r.extensions.EmitJobStarted(ctx, jc)
		res = r.executeAttempt(ctx, def, handler, jc)

		if res.Success {
			r.tracker.recordSuccess(def.ID, res.Duration)
			r.extensions.EmitJobCompleted(ctx, jc, res)
			return res
		}

		if attempt == maxAttempts {
			break
		}

		delay := strategy.Delay(attempt)
		r.tracker.recordRetry()
		r.extensions.EmitJobRetrying(ctx, jc, res, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// Shutdown or caller cancellation mid-backoff: stop
			// retrying and account the execution as exhausted.
			r.exhaust(ctx, def, jc, res)
			return res
		}
	}

	r.exhaust(ctx, def, jc, res)
	return res
}

// executeAttempt runs the handler through the middleware chain, racing
// it against the job's timeout. A timed-out attempt yields a synthetic
// failed Result and is retried like any other failure; the handler is
// not force-terminated and must cooperate with its context.
func (r *Runner) executeAttempt(ctx context.Context, def job.Definition, handler job.HandlerFunc, jc *job.Context) *job.Result {
	start := time.Now()

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if def.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, def.Timeout)
	}
	defer cancel()

	type outcome struct {
		res *job.Result
		err error
	}
	outCh := make(chan outcome, 1)

	go func() {
		res, err := r.mw(attemptCtx, jc, func(c context.Context) (*job.Result, error) {
			return handler(c, jc)
		})
		outCh <- outcome{res, err}
	}()

	select {
	case o := <-outCh:
		return normalizeResult(o.res, o.err, time.Since(start))
	case <-attemptCtx.Done():
		elapsed := time.Since(start)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return job.Failed(elapsed, fmt.Sprintf("attempt timed out after %s", def.Timeout))
		}
		return job.Failed(elapsed, "run cancelled: "+context.Cause(attemptCtx).Error())
	}
}

// exhaust handles the terminal failure of an execution: failure
// accounting, dead-lettering, and alerting.
func (r *Runner) exhaust(ctx context.Context, def job.Definition, jc *job.Context, res *job.Result) {
	streak := r.tracker.recordFailure(def.ID)
	r.extensions.EmitJobFailed(ctx, jc, res)

	if def.DeadLetterOnFailure {
		// Dead-lettering is best-effort bookkeeping: a persistence
		// failure here must never mask or amplify the job failure.
		if err := r.dlqService.Add(ctx, jc, res.Errors, res); err != nil {
			r.logger.Error("failed to record dead letter entry",
				slog.String("job_id", def.ID),
				slog.String("execution_id", jc.ExecutionID.String()),
				slog.String("error", err.Error()),
			)
		} else {
			r.tracker.recordDeadLetter()
			r.extensions.EmitJobDLQ(ctx, jc, res)
		}
	}

	if def.AlertOnFailure {
		r.fireAlert(ctx, def, jc, res, streak)
	}

	r.logger.Warn("job exhausted all attempts",
		slog.String("job_id", def.ID),
		slog.String("execution_id", jc.ExecutionID.String()),
		slog.Int("attempts", jc.Attempt),
		slog.Int("consecutive_failures", streak),
		slog.String("error", res.FirstError()),
	)
}

// fireAlert escalates to critical once the consecutive-failure streak
// reaches the configured threshold; below it, exhaustion warns.
func (r *Runner) fireAlert(ctx context.Context, def job.Definition, jc *job.Context, res *job.Result, streak int) {
	fields := map[string]any{
		"job_id":               def.ID,
		"execution_id":         jc.ExecutionID.String(),
		"attempts":             jc.Attempt,
		"errors":               res.Errors,
		"consecutive_failures": streak,
	}
	title := fmt.Sprintf("Job %s failed", def.ID)
	message := fmt.Sprintf("job %s exhausted %d attempt(s): %s", def.ID, jc.Attempt, res.FirstError())

	if streak >= r.cfg.CriticalFailureThreshold {
		r.alerts.FireCritical(ctx, title, message, fields)
		return
	}
	r.alerts.FireWarning(ctx, title, message, fields)
}

// skip records a non-failure skip and notifies extensions.
func (r *Runner) skip(ctx context.Context, jobID, reason string) {
	r.tracker.recordSkip()
	r.extensions.EmitJobSkipped(ctx, jobID, reason)
	r.logger.Debug("run skipped",
		slog.String("job_id", jobID),
		slog.String("reason", reason),
	)
}

// backoffFor maps a definition's retry settings onto a strategy.
func (r *Runner) backoffFor(def job.Definition) backoff.Strategy {
	if def.ExponentialBackoff {
		return backoff.NewExponential(backoff.Policy{
			InitialDelay: def.RetryDelay,
			MaxDelay:     def.MaxRetryDelay,
			Multiplier:   r.cfg.BackoffMultiplier,
			JitterFactor: r.cfg.BackoffJitter,
		})
	}
	return backoff.NewConstant(def.RetryDelay)
}

// normalizeResult guarantees downstream accounting always sees a
// Result: a handler that errors without returning one gets a synthetic
// failed Result carrying the error message.
func normalizeResult(res *job.Result, err error, elapsed time.Duration) *job.Result {
	if res == nil {
		if err != nil {
			return job.Failed(elapsed, err.Error())
		}
		return job.Failed(elapsed, "handler returned no result")
	}
	if err != nil {
		res.Success = false
		if len(res.Errors) == 0 {
			res.Errors = []string{err.Error()}
		}
	}
	if res.Duration == 0 {
		res.Duration = elapsed
	}
	return res
}
