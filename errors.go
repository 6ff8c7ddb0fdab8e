package runlock

import "errors"

var (
	// ErrNoStore is returned by New when no store is supplied.
	ErrNoStore = errors.New("runlock: no store configured")

	// ErrShuttingDown is returned by Run after Shutdown has begun.
	// No attempt is made for the rejected run.
	ErrShuttingDown = errors.New("runlock: runner is shutting down")
)
