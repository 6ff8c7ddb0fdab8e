package job

import (
	"time"

	"github.com/xraph/runlock/id"
)

// Context is the per-attempt value object handed to a handler. A fresh
// Context is built for every attempt; the ExecutionID is shared by all
// attempts of one run. Immutable once constructed.
type Context struct {
	// JobID is the Definition.ID being executed.
	JobID string

	// ExecutionID uniquely identifies this run (not this attempt).
	ExecutionID id.ExecutionID

	// StartedAt is when this attempt began.
	StartedAt time.Time

	// Attempt is 1-based: the first attempt is 1.
	Attempt int

	// PreviousResult is the outcome of the prior attempt, nil on the
	// first attempt.
	PreviousResult *Result

	// LockedBy identifies the runner instance holding the lock.
	// Nil for non-exclusive jobs.
	LockedBy id.InstanceID

	// FencingToken is the strictly increasing token issued with the
	// lock. Zero for non-exclusive jobs. Handlers doing external writes
	// should pass it along so stale lock holders can be rejected.
	FencingToken int64
}
