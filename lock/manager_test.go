package lock_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/runlock/id"
	"github.com/xraph/runlock/kv"
	"github.com/xraph/runlock/lock"
	"github.com/xraph/runlock/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(st kv.Store) *lock.Manager {
	return lock.NewManager(st, id.NewInstanceID(), lock.WithLogger(discardLogger()))
}

func TestWithLock_RunsWhileHeld(t *testing.T) {
	st := memory.New()
	m := newManager(st)
	ctx := context.Background()

	var ran bool
	acquired, err := m.WithLock(ctx, "report", time.Minute, func(_ context.Context, h *lock.Handle) error {
		ran = true
		if h.JobID != "report" {
			t.Errorf("Handle.JobID = %q", h.JobID)
		}
		if h.FencingToken != 1 {
			t.Errorf("FencingToken = %d, want 1 on first acquisition", h.FencingToken)
		}
		held, herr := st.Exists(ctx, "runlock:lock:report")
		if herr != nil || !held {
			t.Errorf("lock key missing while fn runs: exists=%v err=%v", held, herr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if !acquired || !ran {
		t.Fatalf("acquired=%v ran=%v, want both true", acquired, ran)
	}

	held, err := st.Exists(ctx, "runlock:lock:report")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if held {
		t.Error("lock not released after fn returned")
	}
}

func TestWithLock_HeldElsewhereIsNotAnError(t *testing.T) {
	st := memory.New()
	a := newManager(st)
	b := newManager(st)
	ctx := context.Background()

	inA := make(chan struct{})
	releaseA := make(chan struct{})
	go a.WithLock(ctx, "sync", time.Minute, func(context.Context, *lock.Handle) error {
		close(inA)
		<-releaseA
		return nil
	})
	<-inA

	acquired, err := b.WithLock(ctx, "sync", time.Minute, func(context.Context, *lock.Handle) error {
		t.Error("fn ran without holding the lock")
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v, contention must not be an error", err)
	}
	if acquired {
		t.Fatal("acquired = true while another instance holds the lock")
	}
	close(releaseA)
}

func TestWithLock_DifferentJobsIndependent(t *testing.T) {
	st := memory.New()
	m := newManager(st)
	ctx := context.Background()

	inFirst := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.WithLock(ctx, "job-a", time.Minute, func(context.Context, *lock.Handle) error {
			close(inFirst)
			<-release
			return nil
		})
	}()
	<-inFirst

	acquired, err := m.WithLock(ctx, "job-b", time.Minute, func(context.Context, *lock.Handle) error {
		return nil
	})
	if err != nil || !acquired {
		t.Fatalf("WithLock(job-b) = %v, %v; locks must be per job", acquired, err)
	}
	close(release)
	<-done
}

func TestWithLock_FencingTokensStrictlyIncrease(t *testing.T) {
	st := memory.New()
	a := newManager(st)
	b := newManager(st)
	ctx := context.Background()

	var tokens []int64
	grab := func(m *lock.Manager) {
		t.Helper()
		acquired, err := m.WithLock(ctx, "fenced", time.Minute, func(_ context.Context, h *lock.Handle) error {
			tokens = append(tokens, h.FencingToken)
			return nil
		})
		if err != nil || !acquired {
			t.Fatalf("WithLock() = %v, %v", acquired, err)
		}
	}

	grab(a)
	grab(b)
	grab(a)
	grab(b)

	for i := 1; i < len(tokens); i++ {
		if tokens[i] <= tokens[i-1] {
			t.Errorf("tokens[%d] = %d, not greater than %d", i, tokens[i], tokens[i-1])
		}
	}
}

func TestWithLock_TokensSurviveLockExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	st := memory.New(memory.WithClock(clock))
	m := newManager(st)
	ctx := context.Background()

	var first int64
	m.WithLock(ctx, "expiring", time.Second, func(_ context.Context, h *lock.Handle) error {
		first = h.FencingToken
		return nil
	})

	// Jump past any TTL. The fencing counter carries no TTL and must
	// keep increasing across expiry.
	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	var second int64
	m.WithLock(ctx, "expiring", time.Second, func(_ context.Context, h *lock.Handle) error {
		second = h.FencingToken
		return nil
	})

	if second <= first {
		t.Errorf("token after expiry = %d, want > %d", second, first)
	}
}

func TestWithLock_FnErrorPropagatesAndReleases(t *testing.T) {
	st := memory.New()
	m := newManager(st)
	ctx := context.Background()

	wantErr := errors.New("handler blew up")
	acquired, err := m.WithLock(ctx, "failing", time.Minute, func(context.Context, *lock.Handle) error {
		return wantErr
	})
	if !acquired {
		t.Fatal("acquired = false")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want fn's error", err)
	}

	held, _ := st.Exists(ctx, "runlock:lock:failing")
	if held {
		t.Error("lock not released after fn error")
	}
}

func TestWithLock_SingleWinnerUnderContention(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	const contenders = 8
	var wins, inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		m := newManager(st)
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := m.WithLock(ctx, "contended", time.Minute, func(context.Context, *lock.Handle) error {
				n := inside.Add(1)
				for {
					mx := maxInside.Load()
					if n <= mx || maxInside.CompareAndSwap(mx, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
			if acquired {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("winners = %d, want 1", got)
	}
	if got := maxInside.Load(); got > 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
}

// staleRelease reacquires the same job with the same manager while the
// first hold's deferred release is still pending and verifies the
// release never deletes the newer hold.
func TestWithLock_ReacquireSameInstance(t *testing.T) {
	st := memory.New()
	m := newManager(st)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		acquired, err := m.WithLock(ctx, "repeat", time.Minute, func(context.Context, *lock.Handle) error {
			return nil
		})
		if err != nil || !acquired {
			t.Fatalf("iteration %d: WithLock() = %v, %v", i, acquired, err)
		}
	}
	held, _ := st.Exists(ctx, "runlock:lock:repeat")
	if held {
		t.Error("lock left behind after sequential holds")
	}
}

func TestReleaseAll_SweepsHeldLocks(t *testing.T) {
	st := memory.New()
	m := newManager(st)
	ctx := context.Background()

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var wg sync.WaitGroup
	for _, jobID := range []string{"sweep-a", "sweep-b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.WithLock(ctx, jobID, time.Minute, func(context.Context, *lock.Handle) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started

	m.ReleaseAll(ctx)

	for _, jobID := range []string{"sweep-a", "sweep-b"} {
		held, _ := st.Exists(ctx, "runlock:lock:"+jobID)
		if held {
			t.Errorf("lock %s still held after ReleaseAll", jobID)
		}
	}
	close(release)
	wg.Wait()
}

// failingStore wraps a kv.Store and fails selected operations.
type failingStore struct {
	kv.Store
	failSetNX     bool
	failIncrement bool
}

var errStoreDown = errors.New("store unreachable")

func (s *failingStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if s.failSetNX {
		return false, errStoreDown
	}
	return s.Store.SetNX(ctx, key, value, ttl)
}

func (s *failingStore) Increment(ctx context.Context, key string) (int64, error) {
	if s.failIncrement {
		return 0, errStoreDown
	}
	return s.Store.Increment(ctx, key)
}

func TestWithLock_FailsClosedOnStoreError(t *testing.T) {
	st := &failingStore{Store: memory.New(), failSetNX: true}
	m := newManager(st)

	acquired, err := m.WithLock(context.Background(), "unreachable", time.Minute, func(context.Context, *lock.Handle) error {
		t.Error("fn ran while the store was unreachable")
		return nil
	})
	if acquired {
		t.Error("acquired = true on store error")
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func TestWithLock_FenceFailureReleasesLock(t *testing.T) {
	inner := memory.New()
	st := &failingStore{Store: inner, failIncrement: true}
	m := newManager(st)
	ctx := context.Background()

	acquired, err := m.WithLock(ctx, "half-acquired", time.Minute, func(context.Context, *lock.Handle) error {
		t.Error("fn ran without a fencing token")
		return nil
	})
	if acquired || err == nil {
		t.Fatalf("WithLock() = %v, %v; want failure", acquired, err)
	}

	// The key written by SetNX must have been given back.
	held, _ := inner.Exists(ctx, "runlock:lock:half-acquired")
	if held {
		t.Error("lock key leaked after fence token failure")
	}
}

func TestWithLock_AutoRenewKeepsLockAlive(t *testing.T) {
	st := memory.New()
	m := lock.NewManager(st, id.NewInstanceID(), lock.WithLogger(discardLogger()), lock.WithAutoRenew())
	ctx := context.Background()

	const ttl = 60 * time.Millisecond
	acquired, err := m.WithLock(ctx, "renewed", ttl, func(fnCtx context.Context, _ *lock.Handle) error {
		// Outlive the original TTL several times over.
		select {
		case <-time.After(4 * ttl):
		case <-fnCtx.Done():
			return context.Cause(fnCtx)
		}
		held, herr := st.Exists(ctx, "runlock:lock:renewed")
		if herr != nil || !held {
			t.Errorf("lock expired despite renewal: exists=%v err=%v", held, herr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if !acquired {
		t.Fatal("acquired = false")
	}
}

func TestWithLock_RenewFailureCancelsFn(t *testing.T) {
	st := memory.New()
	m := lock.NewManager(st, id.NewInstanceID(), lock.WithLogger(discardLogger()), lock.WithAutoRenew())
	ctx := context.Background()

	const ttl = 60 * time.Millisecond
	acquired, err := m.WithLock(ctx, "stolen", ttl, func(fnCtx context.Context, h *lock.Handle) error {
		// Simulate the lock being expired and taken by someone else.
		if derr := st.Delete(ctx, "runlock:lock:stolen"); derr != nil {
			t.Fatalf("Delete() error = %v", derr)
		}
		if serr := st.Set(ctx, "runlock:lock:stolen", "someone-else", time.Minute); serr != nil {
			t.Fatalf("Set() error = %v", serr)
		}

		select {
		case <-fnCtx.Done():
			return context.Cause(fnCtx)
		case <-time.After(10 * ttl):
			t.Error("fn context not cancelled after losing the lock")
			return nil
		}
	})
	if !acquired {
		t.Fatal("acquired = false")
	}
	if !errors.Is(err, lock.ErrLockLost) {
		t.Fatalf("error = %v, want ErrLockLost", err)
	}
}
