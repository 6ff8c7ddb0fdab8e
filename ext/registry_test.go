package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/runlock/ext"
	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/job"
	"github.com/xraph/runlock/lock"
)

// recorder opts in to a subset of hooks and records invocations.
type recorder struct {
	started   int
	completed int
	failed    int
	retrying  int
	skipped   []string
	dlq       int
	acquired  []int64
	released  int
	shutdown  int
	hookErr   error
}

func (c *recorder) Name() string { return "recorder" }

func (c *recorder) OnJobStarted(_ context.Context, _ *job.Context) error {
	c.started++
	return c.hookErr
}

func (c *recorder) OnJobCompleted(_ context.Context, _ *job.Context, _ *job.Result) error {
	c.completed++
	return c.hookErr
}

func (c *recorder) OnJobFailed(_ context.Context, _ *job.Context, _ *job.Result) error {
	c.failed++
	return c.hookErr
}

func (c *recorder) OnJobRetrying(_ context.Context, _ *job.Context, _ *job.Result, _ time.Duration) error {
	c.retrying++
	return c.hookErr
}

func (c *recorder) OnJobSkipped(_ context.Context, jobID, reason string) error {
	c.skipped = append(c.skipped, jobID+"/"+reason)
	return c.hookErr
}

func (c *recorder) OnJobDLQ(_ context.Context, _ *job.Context, _ *job.Result) error {
	c.dlq++
	return c.hookErr
}

func (c *recorder) OnLockAcquired(_ context.Context, h *lock.Handle) error {
	c.acquired = append(c.acquired, h.FencingToken)
	return c.hookErr
}

func (c *recorder) OnLockReleased(_ context.Context, _ *lock.Handle) error {
	c.released++
	return c.hookErr
}

func (c *recorder) OnShutdown(_ context.Context) error {
	c.shutdown++
	return c.hookErr
}

// startedOnly implements a single hook to verify opt-in dispatch.
type startedOnly struct {
	started int
}

func (s *startedOnly) Name() string { return "started-only" }

func (s *startedOnly) OnJobStarted(_ context.Context, _ *job.Context) error {
	s.started++
	return nil
}

func testContext() *job.Context {
	return &job.Context{
		JobID:       "report-sync",
		ExecutionID: id.NewExecutionID(),
		StartedAt:   time.Now(),
		Attempt:     1,
	}
}

func TestRegistry_FansOutToImplementedHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	rec := &recorder{}
	only := &startedOnly{}
	r.Register(rec)
	r.Register(only)

	ctx := context.Background()
	jc := testContext()
	res := job.Succeeded(time.Millisecond)

	r.EmitJobStarted(ctx, jc)
	r.EmitJobCompleted(ctx, jc, res)
	r.EmitJobFailed(ctx, jc, job.Failed(0, "boom"))
	r.EmitJobRetrying(ctx, jc, job.Failed(0, "boom"), time.Second)
	r.EmitJobSkipped(ctx, "report-sync", "disabled")
	r.EmitJobDLQ(ctx, jc, job.Failed(0, "boom"))
	r.EmitLockAcquired(ctx, &lock.Handle{JobID: "report-sync", FencingToken: 7})
	r.EmitLockReleased(ctx, &lock.Handle{JobID: "report-sync", FencingToken: 7})
	r.EmitShutdown(ctx)

	if rec.started != 1 || rec.completed != 1 || rec.failed != 1 || rec.retrying != 1 {
		t.Errorf("job hooks = %d/%d/%d/%d, want 1 each",
			rec.started, rec.completed, rec.failed, rec.retrying)
	}
	if len(rec.skipped) != 1 || rec.skipped[0] != "report-sync/disabled" {
		t.Errorf("skipped = %v, want [report-sync/disabled]", rec.skipped)
	}
	if rec.dlq != 1 || rec.released != 1 || rec.shutdown != 1 {
		t.Errorf("dlq/released/shutdown = %d/%d/%d, want 1 each", rec.dlq, rec.released, rec.shutdown)
	}
	if len(rec.acquired) != 1 || rec.acquired[0] != 7 {
		t.Errorf("acquired tokens = %v, want [7]", rec.acquired)
	}

	// The single-hook extension only saw its one event.
	if only.started != 1 {
		t.Errorf("startedOnly.started = %d, want 1", only.started)
	}
}

func TestRegistry_HookErrorsAreSwallowed(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	first := &recorder{hookErr: errors.New("hook down")}
	second := &recorder{}
	r.Register(first)
	r.Register(second)

	// Must not panic, and the second extension still runs.
	r.EmitJobStarted(context.Background(), testContext())

	if first.started != 1 || second.started != 1 {
		t.Errorf("started = %d/%d, want 1/1", first.started, second.started)
	}
}

func TestRegistry_Extensions(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	r.Register(&recorder{})
	r.Register(&startedOnly{})

	if got := len(r.Extensions()); got != 2 {
		t.Errorf("Extensions() returned %d, want 2", got)
	}
}
