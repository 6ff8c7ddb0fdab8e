package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/runlock/dlq"
	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/job"
	"github.com/xraph/runlock/store/memory"
)

func failedContext(jobID string, attempt int) *job.Context {
	return &job.Context{
		JobID:       jobID,
		ExecutionID: id.NewExecutionID(),
		StartedAt:   time.Now().UTC(),
		Attempt:     attempt,
	}
}

func TestService_Add(t *testing.T) {
	st := memory.New()
	svc := dlq.NewService(st)
	ctx := context.Background()

	jc := failedContext("import", 3)
	res := job.Failed(time.Second, "disk full")
	if err := svc.Add(ctx, jc, res.Errors, res); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entry, err := st.GetDLQ(ctx, "import", jc.ExecutionID)
	if err != nil {
		t.Fatalf("GetDLQ() error = %v", err)
	}
	if entry.JobID != "import" || entry.ExecutionID != jc.ExecutionID {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", entry.Attempts)
	}
	if len(entry.Errors) != 1 || entry.Errors[0] != "disk full" {
		t.Errorf("Errors = %v", entry.Errors)
	}
	if entry.ID.IsNil() {
		t.Error("entry ID not assigned")
	}
	if entry.DeadLetteredAt.IsZero() {
		t.Error("DeadLetteredAt not stamped")
	}
	if entry.ReplayedAt != nil {
		t.Error("new entry already marked replayed")
	}
}

func TestService_AddIsIdempotentPerExecution(t *testing.T) {
	st := memory.New()
	svc := dlq.NewService(st)
	ctx := context.Background()

	jc := failedContext("import", 2)
	if err := svc.Add(ctx, jc, []string{"first"}, job.Failed(0, "first")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	jc.Attempt = 4
	if err := svc.Add(ctx, jc, []string{"second"}, job.Failed(0, "second")); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	n, err := st.CountDLQ(ctx)
	if err != nil {
		t.Fatalf("CountDLQ() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("CountDLQ() = %d, want 1 (same execution upserts)", n)
	}

	// Last write wins.
	entry, err := st.GetDLQ(ctx, "import", jc.ExecutionID)
	if err != nil {
		t.Fatalf("GetDLQ() error = %v", err)
	}
	if entry.Attempts != 4 || entry.Errors[0] != "second" {
		t.Errorf("entry = attempts=%d errors=%v, want the later write", entry.Attempts, entry.Errors)
	}
}

func TestService_Replay(t *testing.T) {
	st := memory.New()

	var redispatched []*dlq.Entry
	svc := dlq.NewService(st, dlq.WithRedispatch(func(_ context.Context, e *dlq.Entry) error {
		redispatched = append(redispatched, e)
		return nil
	}))
	ctx := context.Background()

	jc := failedContext("export", 3)
	if err := svc.Add(ctx, jc, []string{"boom"}, job.Failed(0, "boom")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entry, err := svc.Replay(ctx, "export", jc.ExecutionID)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(redispatched) != 1 {
		t.Fatalf("redispatched %d times, want 1", len(redispatched))
	}
	if redispatched[0].JobID != "export" {
		t.Errorf("redispatched entry = %+v", redispatched[0])
	}
	if entry.ReplayedAt == nil {
		t.Error("ReplayedAt not stamped after replay")
	}

	// The entry is retained for audit, not removed.
	n, _ := st.CountDLQ(ctx)
	if n != 1 {
		t.Errorf("CountDLQ() = %d, want entry retained", n)
	}
}

func TestService_ReplayWithoutRedispatch(t *testing.T) {
	svc := dlq.NewService(memory.New())
	_, err := svc.Replay(context.Background(), "export", id.NewExecutionID())
	if !errors.Is(err, dlq.ErrNoRedispatch) {
		t.Fatalf("Replay() error = %v, want ErrNoRedispatch", err)
	}
}

func TestService_ReplayRedispatchFailureSkipsMark(t *testing.T) {
	st := memory.New()
	wantErr := errors.New("job failed again")
	svc := dlq.NewService(st, dlq.WithRedispatch(func(context.Context, *dlq.Entry) error {
		return wantErr
	}))
	ctx := context.Background()

	jc := failedContext("export", 1)
	if err := svc.Add(ctx, jc, []string{"boom"}, job.Failed(0, "boom")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if _, err := svc.Replay(ctx, "export", jc.ExecutionID); !errors.Is(err, wantErr) {
		t.Fatalf("Replay() error = %v, want redispatch error", err)
	}

	entry, err := st.GetDLQ(ctx, "export", jc.ExecutionID)
	if err != nil {
		t.Fatalf("GetDLQ() error = %v", err)
	}
	if entry.ReplayedAt != nil {
		t.Error("entry marked replayed despite redispatch failure")
	}
}

func TestService_ReplayMissingEntry(t *testing.T) {
	svc := dlq.NewService(memory.New(), dlq.WithRedispatch(func(context.Context, *dlq.Entry) error {
		t.Error("redispatch called for a missing entry")
		return nil
	}))
	if _, err := svc.Replay(context.Background(), "ghost", id.NewExecutionID()); err == nil {
		t.Fatal("Replay() error = nil, want not-found")
	}
}

func TestEntryKey(t *testing.T) {
	execID := id.NewExecutionID()
	e := &dlq.Entry{JobID: "sync", ExecutionID: execID}
	want := "sync:" + execID.String()
	if e.Key() != want {
		t.Errorf("Key() = %q, want %q", e.Key(), want)
	}
	if dlq.EntryKey("sync", execID) != want {
		t.Errorf("EntryKey() = %q, want %q", dlq.EntryKey("sync", execID), want)
	}
}
