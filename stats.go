package runlock

import (
	"sync"
	"time"
)

// Stats is a process-local running aggregate of run outcomes. It resets
// on process restart and is never shared across instances.
type Stats struct {
	TotalRuns        int64
	SuccessfulRuns   int64
	FailedRuns       int64
	RetriedRuns      int64
	SkippedRuns      int64
	DeadLetteredRuns int64

	// AverageDuration is the running mean duration of successful runs.
	AverageDuration time.Duration
}

// statsTracker guards the aggregate and the per-job consecutive-failure
// counters. Different jobs run concurrently within one process, so the
// shared aggregate needs a mutex even though each job's outcome is
// processed by a single flow.
type statsTracker struct {
	mu      sync.Mutex
	stats   Stats
	streaks map[string]int
}

func newStatsTracker() *statsTracker {
	return &statsTracker{streaks: make(map[string]int)}
}

// recordSuccess counts a successful run, folds its duration into the
// running average, and resets the job's failure streak.
func (t *statsTracker) recordSuccess(jobID string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalRuns++
	t.stats.SuccessfulRuns++
	// Recursive running mean: avg_n = avg_{n-1} + (x - avg_{n-1}) / n.
	n := t.stats.SuccessfulRuns
	t.stats.AverageDuration += (elapsed - t.stats.AverageDuration) / time.Duration(n)

	delete(t.streaks, jobID)
}

// recordFailure counts an exhausted run and returns the job's new
// consecutive-failure streak.
func (t *statsTracker) recordFailure(jobID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalRuns++
	t.stats.FailedRuns++
	t.streaks[jobID]++
	return t.streaks[jobID]
}

func (t *statsTracker) recordRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.RetriedRuns++
}

func (t *statsTracker) recordSkip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.SkippedRuns++
}

func (t *statsTracker) recordDeadLetter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.DeadLetteredRuns++
}

// snapshot returns a copy of the aggregate.
func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// streak returns the current consecutive-failure count for a job.
func (t *statsTracker) streak(jobID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaks[jobID]
}
