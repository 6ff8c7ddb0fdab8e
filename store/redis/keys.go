package redis

// Redis key naming conventions for runlock data.
// All keys are prefixed with "runlock:" to avoid collisions.

const keyPrefix = "runlock:"

// ── DLQ keys ──

// dlqKey returns the key for a DLQ entry: runlock:dlq:{jobID}:{executionID}
func dlqKey(entryKey string) string { return keyPrefix + "dlq:" + entryKey }

// dlqIndexKey is the Sorted Set indexing DLQ entry keys by dead-letter
// time, for newest-first listing and time-based purge.
const dlqIndexKey = keyPrefix + "dlq_index"
