// Package alert defines the alerting contract the runner escalates
// through on sustained failure. Alerts fire only when a job's retry
// budget is exhausted, never per-attempt.
//
// The real sink (pager, chat webhook, incident tracker) lives outside
// this module; LogNotifier is the default so alerting degrades to
// structured logs when nothing else is wired.
package alert

import (
	"context"
	"log/slog"
)

// Notifier delivers alerts to an external sink.
type Notifier interface {
	// FireWarning delivers a warning-severity alert.
	FireWarning(ctx context.Context, title, message string, fields map[string]any)

	// FireCritical delivers a critical-severity alert. Used when a job's
	// consecutive-failure count has reached the configured threshold.
	FireCritical(ctx context.Context, title, message string, fields map[string]any)
}

// LogNotifier writes alerts to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a Notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// FireWarning implements Notifier.
func (n *LogNotifier) FireWarning(ctx context.Context, title, message string, fields map[string]any) {
	n.logger.WarnContext(ctx, "alert: "+title,
		slog.String("message", message),
		slog.Any("fields", fields),
	)
}

// FireCritical implements Notifier.
func (n *LogNotifier) FireCritical(ctx context.Context, title, message string, fields map[string]any) {
	n.logger.ErrorContext(ctx, "alert: "+title,
		slog.String("message", message),
		slog.Any("fields", fields),
	)
}
