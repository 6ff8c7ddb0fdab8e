// Package store defines the aggregate persistence interface. The lock
// manager consumes the narrow kv contract and the dead letter queue its
// own store contract; a single backend implements both. Backends: Redis
// and Memory.
package store

import (
	"context"

	"github.com/xraph/runlock/dlq"
	"github.com/xraph/runlock/kv"
)

// Store is the aggregate persistence interface a backend implements.
type Store interface {
	kv.Store
	dlq.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
