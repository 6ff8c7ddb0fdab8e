package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/kv"
)

// ErrLockLost is returned by WithLock when the lock could not be renewed
// while the protected function was still running. The function's context
// is cancelled when this happens; cooperative handlers should stop.
var ErrLockLost = errors.New("lock: lock lost during execution")

// keyPrefix namespaces all lock and fencing keys in the shared store.
const keyPrefix = "runlock:"

// lockKey returns the lock key for a job: runlock:lock:{jobID}
func lockKey(jobID string) string { return keyPrefix + "lock:" + jobID }

// fenceKey returns the fencing counter key for a job: runlock:fence:{jobID}
// The counter has no TTL — tokens survive lock expiry and keep increasing.
func fenceKey(jobID string) string { return keyPrefix + "fence:" + jobID }

// Handle describes one successful lock acquisition.
type Handle struct {
	// JobID is the job the lock is scoped to.
	JobID string

	// FencingToken is strictly increasing across acquisitions of the
	// same job ID, including after TTL expiry.
	FencingToken int64

	// Owner is the unique value written under the lock key. Release
	// compares against it.
	Owner string

	// TTL is the expiry the lock was acquired with.
	TTL time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithAutoRenew enables background TTL renewal while the protected
// function runs. Disabled by default; enable it for handlers that may
// outlive their lock TTL.
func WithAutoRenew() Option {
	return func(m *Manager) { m.autoRenew = true }
}

// Manager acquires, renews, and releases distributed locks for one
// runner instance. Safe for concurrent use.
type Manager struct {
	store      kv.Store
	instanceID id.InstanceID
	logger     *slog.Logger
	autoRenew  bool

	// seq disambiguates repeated acquisitions by the same instance so the
	// owner value is unique per hold, not per process.
	seq atomic.Int64

	// held tracks live acquisitions for the shutdown sweep.
	mu   sync.Mutex
	held map[string]string // lock key → owner value
}

// NewManager creates a lock Manager owned by the given instance.
func NewManager(store kv.Store, instanceID id.InstanceID, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		instanceID: instanceID,
		logger:     slog.Default(),
		held:       make(map[string]string),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// InstanceID returns the owning instance identifier.
func (m *Manager) InstanceID() id.InstanceID { return m.instanceID }

// WithLock attempts to acquire the exclusive lock for jobID and, if
// successful, runs fn while holding it. The lock is released on return
// regardless of fn's outcome.
//
// Returns acquired=false with a nil error when another instance holds
// the lock — expected under horizontal scaling, not a failure. Returns
// acquired=false with a non-nil error when the store is unreachable
// (fail closed: under-execution is preferred over duplicate execution).
// When acquired, the returned error is fn's error, or ErrLockLost if
// renewal failed mid-flight.
func (m *Manager) WithLock(ctx context.Context, jobID string, ttl time.Duration, fn func(ctx context.Context, h *Handle) error) (acquired bool, err error) {
	key := lockKey(jobID)
	owner := m.instanceID.String() + "#" + strconv.FormatInt(m.seq.Add(1), 10)

	ok, err := m.store.SetNX(ctx, key, owner, ttl)
	if err != nil {
		return false, fmt.Errorf("lock: acquire %s: %w", jobID, err)
	}
	if !ok {
		return false, nil
	}

	token, err := m.store.Increment(ctx, fenceKey(jobID))
	if err != nil {
		// Acquired the key but could not issue a token: give the lock
		// back and fail closed.
		m.release(ctx, key, owner, jobID)
		return false, fmt.Errorf("lock: fence token %s: %w", jobID, err)
	}

	m.track(key, owner)
	defer func() {
		m.release(ctx, key, owner, jobID)
		m.untrack(key)
	}()

	h := &Handle{JobID: jobID, FencingToken: token, Owner: owner, TTL: ttl}

	fnCtx := ctx
	if m.autoRenew {
		var cancel context.CancelCauseFunc
		fnCtx, cancel = context.WithCancelCause(ctx)
		stopRenew := m.startRenew(fnCtx, key, owner, ttl, cancel)
		defer stopRenew()
	}

	if fnErr := fn(fnCtx, h); fnErr != nil {
		if errors.Is(context.Cause(fnCtx), ErrLockLost) {
			return true, ErrLockLost
		}
		return true, fnErr
	}
	return true, nil
}

// ReleaseAll is a best-effort sweep releasing every lock this instance
// still holds. Used during graceful shutdown. Locks held by other
// instances are untouched.
func (m *Manager) ReleaseAll(ctx context.Context) {
	m.mu.Lock()
	snapshot := make(map[string]string, len(m.held))
	for k, v := range m.held {
		snapshot[k] = v
	}
	m.mu.Unlock()

	for key, owner := range snapshot {
		if _, err := m.store.CompareAndDelete(ctx, key, owner); err != nil {
			m.logger.Warn("release sweep failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		m.untrack(key)
	}
}

// startRenew extends the lock TTL at ttl/3 intervals until stopped.
// If the lock is no longer ours (expired and reclaimed), the protected
// function's context is cancelled with ErrLockLost.
func (m *Manager) startRenew(ctx context.Context, key, owner string, ttl time.Duration, cancel context.CancelCauseFunc) (stop func()) {
	interval := ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := m.store.CompareAndExpire(ctx, key, owner, ttl)
				if err != nil {
					m.logger.Warn("lock renewal error",
						slog.String("key", key),
						slog.String("error", err.Error()),
					)
					continue
				}
				if !ok {
					cancel(ErrLockLost)
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// release deletes the lock key only if we still own it.
func (m *Manager) release(ctx context.Context, key, owner, jobID string) {
	deleted, err := m.store.CompareAndDelete(ctx, key, owner)
	if err != nil {
		m.logger.Warn("lock release failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !deleted {
		// The TTL expired and another instance reclaimed the key.
		// Deleting it here would break their exclusion.
		m.logger.Warn("lock already reclaimed at release",
			slog.String("job_id", jobID),
			slog.String("owner", owner),
		)
	}
}

func (m *Manager) track(key, owner string) {
	m.mu.Lock()
	m.held[key] = owner
	m.mu.Unlock()
}

func (m *Manager) untrack(key string) {
	m.mu.Lock()
	delete(m.held, key)
	m.mu.Unlock()
}
