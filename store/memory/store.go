// Package memory is a fully in-memory implementation of the kv and dlq
// store contracts. Safe for concurrent access. Intended for unit testing
// and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/xraph/runlock/dlq"
	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/kv"
)

// Compile-time interface checks.
var (
	_ kv.Store  = (*Store)(nil)
	_ dlq.Store = (*Store)(nil)
)

// Store holds all state behind a single mutex. TTLs are enforced lazily:
// an expired key is treated as absent and removed on first touch.
type Store struct {
	mu      sync.Mutex
	values  map[string]entry
	dlqs    map[string]*dlq.Entry // key: jobID:executionID
	nowFunc func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source. Tests use it to force TTL expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFunc = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		values:  make(map[string]entry),
		dlqs:    make(map[string]*dlq.Entry),
		nowFunc: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// kv.Store
// ──────────────────────────────────────────────────

// Get returns the live value for key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set writes key unconditionally.
func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = s.newEntry(value, ttl)
	return nil
}

// SetNX writes key only if absent (or expired).
func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.values[key] = s.newEntry(value, ttl)
	return true, nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// CompareAndDelete removes key only if its live value equals value.
// The compare and delete happen under the store mutex, so they are
// atomic with respect to all other operations.
func (s *Store) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(s.values, key)
	return true, nil
}

// CompareAndExpire resets the TTL on key only if its live value equals value.
func (s *Store) CompareAndExpire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	s.values[key] = s.newEntry(value, ttl)
	return true, nil
}

// Exists reports whether key is live.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.live(key)
	return ok, nil
}

// Increment atomically increments the counter at key. A missing key
// counts from zero. Counters keep any TTL they already had; a fresh
// counter has none.
func (s *Store) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	e, ok := s.live(key)
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("memory: increment %s: value %q is not an integer", key, e.value)
		}
		n = parsed
	}
	n++
	s.values[key] = entry{value: strconv.FormatInt(n, 10), expiresAt: e.expiresAt}
	return n, nil
}

// live returns the entry for key if present and unexpired, removing it
// if it has expired. Callers must hold s.mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.values[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.nowFunc().Before(e.expiresAt) {
		delete(s.values, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.nowFunc().Add(ttl)
	}
	return e
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

// AddDLQ upserts an entry under its jobID:executionID key.
func (s *Store) AddDLQ(_ context.Context, e *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.dlqs[e.Key()] = &cp
	return nil
}

// ListDLQ returns entries newest first.
func (s *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*dlq.Entry, 0, len(s.dlqs))
	for _, e := range s.dlqs {
		if opts.JobID != "" && e.JobID != opts.JobID {
			continue
		}
		cp := *e
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DeadLetteredAt.After(all[j].DeadLetteredAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return nil, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

// GetDLQ retrieves the entry for one execution.
func (s *Store) GetDLQ(_ context.Context, jobID string, executionID id.ExecutionID) (*dlq.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dlqs[dlq.EntryKey(jobID, executionID)]
	if !ok {
		return nil, fmt.Errorf("memory: dlq entry %s: not found", dlq.EntryKey(jobID, executionID))
	}
	cp := *e
	return &cp, nil
}

// MarkReplayedDLQ stamps the entry's ReplayedAt.
func (s *Store) MarkReplayedDLQ(_ context.Context, jobID string, executionID id.ExecutionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dlqs[dlq.EntryKey(jobID, executionID)]
	if !ok {
		return fmt.Errorf("memory: dlq entry %s: not found", dlq.EntryKey(jobID, executionID))
	}
	now := s.nowFunc().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeDLQ removes entries dead-lettered before the given time.
func (s *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, e := range s.dlqs {
		if e.DeadLetteredAt.Before(before) {
			delete(s.dlqs, k)
			removed++
		}
	}
	return removed, nil
}

// CountDLQ returns the total number of entries.
func (s *Store) CountDLQ(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.dlqs)), nil
}
