// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package lock

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.astrophena.name/megazu/internal/store"
	"go.astrophena.name/megazu/internal/testutil"
)

// fakeClock is a manual clock whose sleep advances time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps++
	c.mu.Unlock()
	c.Advance(d)
	return nil
}

func newTestManager(s store.Store) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := New(s)
	m.now = clock.Now
	m.sleep = clock.Sleep
	var n atomic.Int64
	m.newToken = func() string { return "token-" + strconv.FormatInt(n.Add(1), 10) }
	return m, clock
}

func readDoc(t *testing.T, s store.Store, key string) *doc {
	t.Helper()
	b, err := s.Get(t.Context(), key)
	if err != nil {
		t.Fatal(err)
	}
	if b == nil {
		return nil
	}
	d := testutil.UnmarshalJSON[doc](t, b)
	return &d
}

func TestKey(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, Key("-100123", "42"), "locks/-100123_42")
}

func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, clock := newTestManager(s)
	key := Key("g", "u")

	l, err := m.Acquire(t.Context(), key, 10*time.Second, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key), &doc{
		ExpiresAt: clock.Now().Add(10 * time.Second).UnixMilli(),
		Token:     "token-1",
	})

	if err := l.Release(t.Context()); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key), (*doc)(nil))
}

func TestAcquireBusy(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, clock := newTestManager(s)
	key := Key("g", "u")

	if _, err := m.Acquire(t.Context(), key, time.Minute, 0); err != nil {
		t.Fatal(err)
	}

	_, err := m.Acquire(t.Context(), key, time.Minute, time.Second)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	// One attempt up front, then one per interval of the wait budget.
	testutil.AssertEqual(t, clock.sleeps, int(time.Second/RetryInterval))
}

func TestAcquireReclaimsExpired(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, clock := newTestManager(s)
	key := Key("g", "u")

	stale, err := m.Acquire(t.Context(), key, 10*time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}

	// The holder crashed. A waiter with enough budget takes over once the
	// lock expires.
	fresh, err := m.Acquire(t.Context(), key, 10*time.Second, 15*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key).Token, "token-2")
	if clock.Now().Before(time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)) {
		t.Fatalf("lock reclaimed before expiry at %v", clock.Now())
	}

	// The stale holder must not delete the new holder's lock.
	if err := stale.Release(t.Context()); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("want ErrNotHeld, got %v", err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key).Token, "token-2")

	if err := fresh.Release(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Release(t.Context()); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("double release: want ErrNotHeld, got %v", err)
	}
}

func TestAcquireContextCanceled(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, _ := newTestManager(s)
	key := Key("g", "u")
	if _, err := m.Acquire(t.Context(), key, time.Minute, 0); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := m.Acquire(ctx, key, time.Minute, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestMutualExclusion(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m := New(s)
	key := Key("g", "u")

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := m.Acquire(context.Background(), key, 10*time.Second, 10*time.Second)
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			for {
				old := maxSeen.Load()
				if n <= old || maxSeen.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			if err := l.Release(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, maxSeen.Load(), int32(1))
}

func TestAcquireCorruptDocument(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, _ := newTestManager(s)
	if err := store.Batch(t.Context(), s, func(w store.Writer) error {
		return w.Set("locks/g_u", map[string]any{"expiresAt": "soon"})
	}); err != nil {
		t.Fatal(err)
	}
	_, err := m.Acquire(t.Context(), "locks/g_u", time.Second, 0)
	var syntaxErr *json.UnmarshalTypeError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("want a decoding error, got %v", err)
	}
}

func TestExtend(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, clock := newTestManager(s)
	key := Key("g", "u")

	l, err := m.Acquire(t.Context(), key, 10*time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(8 * time.Second)
	if err := l.Extend(t.Context(), 10*time.Second); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key), &doc{
		ExpiresAt: clock.Now().Add(10 * time.Second).UnixMilli(),
		Token:     "token-1",
	})

	// Past the original expiry the lock is still ours.
	clock.Advance(5 * time.Second)
	if _, err := m.Acquire(t.Context(), key, 10*time.Second, 0); !errors.Is(err, ErrBusy) {
		t.Fatalf("want ErrBusy, got %v", err)
	}
}

func TestExtendTakenOver(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m, clock := newTestManager(s)
	key := Key("g", "u")

	stale, err := m.Acquire(t.Context(), key, 10*time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(11 * time.Second)
	if _, err := m.Acquire(t.Context(), key, 10*time.Second, 0); err != nil {
		t.Fatal(err)
	}

	if err := stale.Extend(t.Context(), 10*time.Second); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("want ErrNotHeld, got %v", err)
	}
	testutil.AssertEqual(t, readDoc(t, s, key).Token, "token-2")
}

func TestHoldOutlivesTTL(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m := New(s)
	key := Key("g", "u")
	const ttl = 150 * time.Millisecond

	l, err := m.Acquire(t.Context(), key, ttl, 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, stop := l.Hold(t.Context(), ttl)

	time.Sleep(3 * ttl)
	if _, err := m.Acquire(t.Context(), key, ttl, 0); !errors.Is(err, ErrBusy) {
		t.Fatalf("held lock was taken over: %v", err)
	}
	if err := ctx.Err(); err != nil {
		t.Fatalf("held context canceled: %v", context.Cause(ctx))
	}

	stop()
	if err := l.Release(t.Context()); err != nil {
		t.Fatal(err)
	}
}

func TestHoldCancelsWhenLost(t *testing.T) {
	t.Parallel()

	s := store.NewMemStore()
	m := New(s)
	key := Key("g", "u")
	const ttl = 60 * time.Millisecond

	l, err := m.Acquire(t.Context(), key, ttl, 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, stop := l.Hold(t.Context(), ttl)
	defer stop()

	// Someone deletes the lock behind the holder's back.
	if err := store.Batch(t.Context(), s, func(w store.Writer) error { return w.Delete(key) }); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not canceled after the lock was lost")
	}
	if cause := context.Cause(ctx); !errors.Is(cause, ErrNotHeld) {
		t.Fatalf("want cause ErrNotHeld, got %v", cause)
	}
}
