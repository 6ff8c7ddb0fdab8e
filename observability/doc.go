// Package observability provides a Prometheus metrics extension for
// runlock. Register it on a Runner to export per-job counters for
// completions, failures, retries, skips, and dead-letterings, a
// histogram of execution duration, and a gauge of the current
// consecutive-failure streak per job.
package observability
