// Package ext defines the extension system for runlock.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, emitting webhooks, writing audit logs, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, jc *job.Context, res *job.Result) error {
//	    log.Printf("job %s completed in %s", jc.JobID, res.Duration)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobStarted] — an attempt began executing
//   - [JobCompleted] — an execution finished successfully
//   - [JobFailed] — an execution exhausted all attempts
//   - [JobRetrying] — an attempt failed but more remain
//   - [JobDLQ] — an execution was recorded in the dead letter queue
//
// # Lock Lifecycle Hooks
//
//   - [LockAcquired] — an exclusive lock was acquired, with its fencing token
//   - [LockReleased] — an exclusive lock was given back
//
// # Other Hooks
//
//   - [Shutdown] — the runner is shutting down gracefully
//
// The [Registry] fans out each event synchronously to all registered
// extensions that implement the corresponding hook interface, in
// registration order. Hook errors are logged and swallowed — emission is
// fire-and-forget from the runner's point of view.
package ext
