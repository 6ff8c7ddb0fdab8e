package runlock

import (
	"log/slog"

	"github.com/xraph/runlock/alert"
	"github.com/xraph/runlock/ext"
	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/middleware"
)

// Option configures a Runner.
type Option func(*Runner) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Runner) error {
		r.cfg = cfg
		return nil
	}
}

// WithLogger sets the structured logger for the runner and everything
// it constructs (lock manager, default middleware, extension registry).
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) error {
		r.logger = l
		return nil
	}
}

// WithInstanceID overrides the generated runner instance identifier.
// Useful when the embedding application already has a stable identity.
func WithInstanceID(instanceID id.InstanceID) Option {
	return func(r *Runner) error {
		r.instanceID = instanceID
		return nil
	}
}

// WithAlertNotifier sets the sink for exhaustion alerts. Defaults to a
// log-backed notifier.
func WithAlertNotifier(n alert.Notifier) Option {
	return func(r *Runner) error {
		r.alerts = n
		return nil
	}
}

// WithMiddleware appends middleware to the handler invocation chain,
// after the built-in logging and panic recovery.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Runner) error {
		r.userMW = append(r.userMW, mws...)
		return nil
	}
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(r *Runner) error {
		r.pendingExts = append(r.pendingExts, e)
		return nil
	}
}

// WithAutoRenewLocks enables background lock TTL renewal while a
// handler runs, for jobs whose execution may outlive the TTL window.
func WithAutoRenewLocks() Option {
	return func(r *Runner) error {
		r.autoRenewLocks = true
		return nil
	}
}
