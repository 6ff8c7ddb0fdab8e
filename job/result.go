package job

import "time"

// Result is the outcome of one attempt, produced by the handler or
// synthesized by the runner on timeout or panic.
type Result struct {
	// Success reports whether the attempt succeeded.
	Success bool `json:"success"`

	// Duration is how long the attempt ran.
	Duration time.Duration `json:"duration"`

	// ItemsProcessed is an optional count of work units handled.
	ItemsProcessed int `json:"items_processed,omitempty"`

	// Errors holds human-readable failure messages.
	Errors []string `json:"errors,omitempty"`

	// Metadata carries opaque handler-defined values through events and
	// dead letter entries.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Succeeded returns a successful Result with the given duration.
func Succeeded(elapsed time.Duration) *Result {
	return &Result{Success: true, Duration: elapsed}
}

// Failed returns a failed Result carrying the given error messages.
// Downstream accounting always operates on a Result, never on a raw
// error, so runner code normalizes every failure through this.
func Failed(elapsed time.Duration, errs ...string) *Result {
	return &Result{Success: false, Duration: elapsed, Errors: errs}
}

// FirstError returns the first error message, or "" if there is none.
func (r *Result) FirstError() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}
