// Package runlock is a distributed background-job execution engine.
// Given a declarative job definition and a registered handler, it
// guarantees at-most-one concurrent execution of exclusive jobs across
// cooperating process instances, retries failing jobs with configurable
// backoff, routes permanently-failed executions to a durable dead letter
// queue, and escalates alerts on sustained failure.
//
// Runlock is a library, not a service. An external scheduler decides
// when a job should run and calls Runner.Run; runlock decides whether
// and how it runs.
//
// # Quick Start
//
//	st := memory.New() // or redisstore.New(client)
//	r, err := runlock.New(st)
//	if err != nil { ... }
//
//	r.Register("report-sync", func(ctx context.Context, jc *job.Context) (*job.Result, error) {
//	    // ... do the work ...
//	    return job.Succeeded(time.Since(jc.StartedAt)), nil
//	})
//
//	res, err := r.Run(ctx, job.NewDefinition("report-sync",
//	    job.WithExclusive(true),
//	    job.WithTimeout(30*time.Second),
//	    job.WithRetry(2, time.Second),
//	))
//
// # Exclusion model
//
// Exclusive jobs take a distributed lock keyed by job ID before any
// attempt runs. A lock held elsewhere is a normal skip — expected under
// horizontal scaling, never a failure. Each acquisition carries a
// strictly increasing fencing token so external systems can reject
// writes from stale lock holders. Mutual exclusion holds only while a
// valid lock is held; runlock does not provide exactly-once semantics.
//
// # Failure model
//
// Handler errors, panics, and timeouts are normalized into a failed
// job.Result and retried per the definition's policy. Only after the
// attempt budget is exhausted does the execution count as failed, get
// dead-lettered, and fire alerts. Errors returned by Run itself indicate
// runner-level problems (such as shutdown), not job outcomes.
package runlock
