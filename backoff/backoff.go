// Package backoff provides pluggable retry delay strategies for job
// execution. All strategies are safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// Policy describes a retry schedule for the exponential strategy.
type Policy struct {
	// InitialDelay is the base delay for the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the un-jittered delay. Zero means no cap.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor per attempt.
	// Values <= 1 degrade to a constant InitialDelay.
	Multiplier float64

	// JitterFactor spreads the delay uniformly over
	// [delay*(1-j), delay*(1+j)] so that retries from multiple
	// instances do not synchronize into storms. Must be in [0, 1).
	JitterFactor float64
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential (bounded jitter)
// ──────────────────────────────────────────────────

// Exponential grows the delay geometrically and applies bounded jitter.
// Delay = min(InitialDelay * Multiplier^(attempt-1), MaxDelay),
// then spread over [delay*(1-j), delay*(1+j)].
type Exponential struct {
	policy Policy
	rng    *rand.Rand // nil means the shared global source
}

// NewExponential creates an exponential backoff strategy from a policy.
func NewExponential(p Policy) *Exponential {
	return &Exponential{policy: p}
}

// NewExponentialSeeded creates an exponential backoff strategy with a
// deterministic random source. Two strategies built from the same policy
// and seed produce identical delay sequences.
func NewExponentialSeeded(p Policy, seed uint64) *Exponential {
	return &Exponential{
		policy: p,
		rng:    rand.New(rand.NewPCG(seed, seed)), //nolint:gosec // jitter intentionally uses non-crypto rand
	}
}

// Delay returns the jittered delay for the given 1-indexed attempt.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(e.policy.InitialDelay)
	if e.policy.Multiplier > 1 {
		base *= math.Pow(e.policy.Multiplier, float64(attempt-1))
	}
	if e.policy.MaxDelay > 0 && base > float64(e.policy.MaxDelay) {
		base = float64(e.policy.MaxDelay)
	}

	j := e.policy.JitterFactor
	if j <= 0 {
		return time.Duration(base)
	}

	// Uniform offset in [-j, +j].
	offset := (e.float64()*2 - 1) * j
	d := base * (1 + offset)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func (e *Exponential) float64() float64 {
	if e.rng != nil {
		return e.rng.Float64()
	}
	return rand.Float64() //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the runner when a
// job enables exponential backoff without tuning it: 1s initial, 1m cap,
// doubling, 10% jitter.
func DefaultStrategy() Strategy {
	return NewExponential(Policy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     1 * time.Minute,
		Multiplier:   2,
		JitterFactor: 0.1,
	})
}
