// Package lock provides distributed exclusive locks over a key-value
// store, with fencing tokens for staleness detection.
//
// A lock is a create-if-absent key with a TTL. Acquisition that finds the
// key present means another instance is running the job — callers treat
// that as a normal skip, never as a failure. Each successful acquisition
// is issued a fencing token from an atomically incremented counter that
// outlives the lock key, so tokens keep increasing across TTL expiries
// and re-acquisitions by other instances.
//
// Release is an atomic compare-and-delete on the owner value written at
// acquisition. This guards against deleting a lock that has already
// expired and been reclaimed by another instance.
//
// If the backing store is unreachable, acquisition fails closed: the
// caller sees "not acquired" rather than running without exclusion.
package lock
