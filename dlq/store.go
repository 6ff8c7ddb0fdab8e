package dlq

import (
	"context"
	"time"

	"github.com/xraph/runlock/id"
)

// ListOpts controls pagination and filtering for DLQ list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
	// JobID filters by job ID. Empty means all jobs.
	JobID string
}

// Store defines the persistence contract for the dead letter queue.
type Store interface {
	// AddDLQ upserts an entry under its jobID:executionID key.
	// A second add for the same execution overwrites the first.
	AddDLQ(ctx context.Context, entry *Entry) error

	// ListDLQ returns entries matching the given options, newest first.
	ListDLQ(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetDLQ retrieves the entry for one execution.
	GetDLQ(ctx context.Context, jobID string, executionID id.ExecutionID) (*Entry, error)

	// MarkReplayedDLQ stamps the entry's ReplayedAt. The actual
	// re-dispatch is handled at the service layer.
	MarkReplayedDLQ(ctx context.Context, jobID string, executionID id.ExecutionID) error

	// PurgeDLQ removes entries dead-lettered before the given time.
	// Returns the number of entries removed.
	PurgeDLQ(ctx context.Context, before time.Time) (int64, error)

	// CountDLQ returns the total number of entries.
	CountDLQ(ctx context.Context) (int64, error)
}
