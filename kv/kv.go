// Package kv defines the narrow key-value store contract consumed by the
// lock manager and the dead letter queue. Backends: Redis and Memory.
//
// The contract is deliberately small: string values, per-key TTL,
// create-if-absent for lock keys, atomic increment for fencing-token
// counters, and atomic compare-and-delete for safe lock release.
package kv

import (
	"context"
	"time"
)

// Store is the persistence contract shared by all runlock subsystems that
// touch the external key-value store. A single backend implements it.
type Store interface {
	// Get returns the value for key. The second return is false if the
	// key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key to value. A positive ttl sets a per-key expiry;
	// zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key to value only if the key does not already exist.
	// Returns true if the write happened. The check and write are atomic.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete removes key only if its current value equals value.
	// Returns true if the key was deleted. The compare and delete are
	// atomic — a plain get-then-delete is subject to a race with TTL
	// expiry and re-acquisition.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	// CompareAndExpire resets the TTL on key only if its current value
	// equals value. Returns true if the TTL was extended. Atomic for the
	// same reason as CompareAndDelete.
	CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment atomically increments the integer counter stored at key
	// and returns the new value. A missing key counts from zero.
	Increment(ctx context.Context, key string) (int64, error)
}
