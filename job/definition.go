package job

import "time"

// Definition is the immutable declarative record describing how a job
// should be executed. It is supplied by the caller on every Run call.
type Definition struct {
	// ID is the unique key for this job. Handlers are registered per ID,
	// and lock and dead-letter state is scoped to it.
	ID string

	// Enabled gates execution. A disabled job is skipped, not failed.
	Enabled bool

	// Exclusive requires a distributed lock: at most one execution of
	// this job may be in flight across all runner instances.
	Exclusive bool

	// Timeout bounds a single attempt. On expiry the attempt is treated
	// as failed and retried per policy.
	Timeout time.Duration

	// RetryAttempts is the number of additional attempts after the first.
	RetryAttempts int

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration

	// ExponentialBackoff grows the retry delay geometrically instead of
	// keeping it constant.
	ExponentialBackoff bool

	// MaxRetryDelay caps the exponential delay. Zero means no cap.
	MaxRetryDelay time.Duration

	// DeadLetterOnFailure records the execution in the dead letter queue
	// when all attempts are exhausted.
	DeadLetterOnFailure bool

	// AlertOnFailure fires an alert when all attempts are exhausted.
	AlertOnFailure bool
}

// DefaultDefinition returns a Definition with documented defaults:
// enabled, non-exclusive, 5m timeout, 3 retries with 1s constant delay,
// dead-lettering and alerting on.
func DefaultDefinition(jobID string) Definition {
	return Definition{
		ID:                  jobID,
		Enabled:             true,
		Timeout:             5 * time.Minute,
		RetryAttempts:       3,
		RetryDelay:          time.Second,
		DeadLetterOnFailure: true,
		AlertOnFailure:      true,
	}
}

// MaxAttempts returns the total attempt budget (initial + retries).
func (d Definition) MaxAttempts() int {
	if d.RetryAttempts < 0 {
		return 1
	}
	return d.RetryAttempts + 1
}

// Option is a functional option for building a Definition.
type Option func(*Definition)

// NewDefinition creates a Definition from the defaults and options.
func NewDefinition(jobID string, opts ...Option) Definition {
	d := DefaultDefinition(jobID)
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithEnabled sets whether the job may run.
func WithEnabled(enabled bool) Option {
	return func(d *Definition) { d.Enabled = enabled }
}

// WithExclusive requires a distributed lock for this job.
func WithExclusive(exclusive bool) Option {
	return func(d *Definition) { d.Exclusive = exclusive }
}

// WithTimeout bounds a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Definition) { d.Timeout = timeout }
}

// WithRetry sets the retry budget and base delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(d *Definition) {
		d.RetryAttempts = attempts
		d.RetryDelay = delay
	}
}

// WithExponentialBackoff enables geometric delay growth capped at maxDelay.
func WithExponentialBackoff(maxDelay time.Duration) Option {
	return func(d *Definition) {
		d.ExponentialBackoff = true
		d.MaxRetryDelay = maxDelay
	}
}

// WithDeadLetter sets whether exhausted executions are dead-lettered.
func WithDeadLetter(enabled bool) Option {
	return func(d *Definition) { d.DeadLetterOnFailure = enabled }
}

// WithAlerting sets whether exhausted executions fire alerts.
func WithAlerting(enabled bool) Option {
	return func(d *Definition) { d.AlertOnFailure = enabled }
}
