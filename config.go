package runlock

import "time"

// Config holds configuration for the Runner. Values are merged with
// DefaultConfig once at construction; there is no runtime mutation.
type Config struct {
	// LockTTLBuffer is added to a job's timeout to form the lock TTL,
	// so the lock comfortably outlives a worst-case attempt.
	LockTTLBuffer time.Duration

	// CriticalFailureThreshold is the consecutive-failure streak at
	// which exhaustion alerts escalate from warning to critical.
	CriticalFailureThreshold int

	// BackoffMultiplier is the growth factor for jobs that enable
	// exponential backoff.
	BackoffMultiplier float64

	// BackoffJitter spreads retry delays uniformly over
	// [delay*(1-j), delay*(1+j)] to avoid synchronized retry storms
	// across instances.
	BackoffJitter float64

	// ShutdownTimeout bounds Shutdown's wait for in-flight runs when
	// the caller's context has no earlier deadline.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LockTTLBuffer:            30 * time.Second,
		CriticalFailureThreshold: 3,
		BackoffMultiplier:        2,
		BackoffJitter:            0.1,
		ShutdownTimeout:          30 * time.Second,
	}
}
