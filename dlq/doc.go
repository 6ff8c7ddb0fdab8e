// Package dlq implements the dead letter queue: a durable, append-only
// record of job executions that exhausted their retry budget.
//
// Entries are keyed by jobID:executionID, so repeated dead-letter
// attempts for the same execution are idempotent (last write wins, never
// duplicated). Entries are never mutated after creation except for the
// replay marker.
//
// Dead-lettering is best-effort bookkeeping: persistence failures here
// are logged by the runner and never change the job's own success or
// failure accounting.
package dlq
