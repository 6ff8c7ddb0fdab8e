package dlq

import (
	"context"
	"time"

	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/job"
)

// RedispatchFunc re-executes the job a replayed entry belongs to.
// Wired by the embedding application — typically a closure over
// Runner.Run with the job's current definition.
type RedispatchFunc func(ctx context.Context, entry *Entry) error

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRedispatch sets the callback Replay uses to re-execute a job.
func WithRedispatch(fn RedispatchFunc) ServiceOption {
	return func(s *Service) { s.redispatch = fn }
}

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store      Store
	redispatch RedispatchFunc
}

// NewService creates a DLQ service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add builds an Entry from a failed execution and upserts it. Calling
// Add twice for the same execution is idempotent.
func (s *Service) Add(ctx context.Context, jc *job.Context, errs []string, lastResult *job.Result) error {
	entry := &Entry{
		ID:             id.NewDLQID(),
		JobID:          jc.JobID,
		ExecutionID:    jc.ExecutionID,
		Attempts:       jc.Attempt,
		Errors:         errs,
		LastResult:     lastResult,
		DeadLetteredAt: time.Now().UTC(),
	}
	return s.store.AddDLQ(ctx, entry)
}

// Store returns the underlying DLQ store for direct access to List,
// Get, Purge, and Count operations.
func (s *Service) Store() Store {
	return s.store
}
