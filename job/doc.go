// Package job defines the declarative job model: the Definition supplied
// by the caller at each run, the per-attempt Context handed to handlers,
// the Result handlers return, and the Registry mapping job IDs to
// handlers.
//
// A Definition is not persisted — the external scheduler owns it and
// passes it to Runner.Run on every trigger. A Context is built fresh for
// every attempt and is immutable once constructed.
package job
