package dlq

import (
	"time"

	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/job"
)

// Entry records one permanently-failed job execution.
type Entry struct {
	ID             id.DLQID       `json:"id"`
	JobID          string         `json:"job_id"`
	ExecutionID    id.ExecutionID `json:"execution_id"`
	Attempts       int            `json:"attempts"`
	Errors         []string       `json:"errors,omitempty"`
	LastResult     *job.Result    `json:"last_result,omitempty"`
	DeadLetteredAt time.Time      `json:"dead_lettered_at"`
	ReplayedAt     *time.Time     `json:"replayed_at,omitempty"`
}

// Key returns the idempotency key for an entry: "jobID:executionID".
// Two dead-letter attempts for the same execution map to the same key.
func (e *Entry) Key() string {
	return EntryKey(e.JobID, e.ExecutionID)
}

// EntryKey builds the idempotency key from its parts.
func EntryKey(jobID string, executionID id.ExecutionID) string {
	return jobID + ":" + executionID.String()
}
