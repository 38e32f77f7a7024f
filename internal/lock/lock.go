// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package lock implements expiring, token-owned locks kept as documents in a
// [store.Store].
//
// A lock document looks like:
//
//	{"expiresAt": 1714550400000, "token": "5f0c..."}
//
// where expiresAt is in Unix milliseconds. An expired lock can be taken over
// by anyone, and only the holder of the token can release it.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.astrophena.name/megazu/internal/store"

	"github.com/google/uuid"
)

// RetryInterval is the pause between acquisition attempts.
const RetryInterval = 100 * time.Millisecond

var (
	// ErrBusy is returned by [Manager.Acquire] when the lock could not be
	// taken within the wait budget.
	ErrBusy = errors.New("lock: resource busy")
	// ErrNotHeld is returned by [Lock.Release] when the lock document is
	// missing or owned by someone else.
	ErrNotHeld = errors.New("lock: not held")
)

// Key returns the document path of the lock guarding a group member.
func Key(groupID, userID string) string {
	return "locks/" + groupID + "_" + userID
}

// Manager acquires locks.
type Manager struct {
	store store.Store

	// used in tests
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	newToken func() string
}

// New returns a new Manager keeping locks in s.
func New(s store.Store) *Manager {
	return &Manager{
		store:    s,
		now:      time.Now,
		sleep:    sleep,
		newToken: uuid.NewString,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type doc struct {
	ExpiresAt int64  `json:"expiresAt"`
	Token     string `json:"token"`
}

// Lock is a held lock.
type Lock struct {
	m     *Manager
	key   string
	token string
}

// Key returns the document path of the lock.
func (l *Lock) Key() string { return l.key }

// Acquire takes the lock at key for ttl, retrying every [RetryInterval] for
// at most maxWait. It returns [ErrBusy] if the lock stayed taken, and the
// context error if ctx is done while waiting.
func (m *Manager) Acquire(ctx context.Context, key string, ttl, maxWait time.Duration) (*Lock, error) {
	remaining := maxWait
	for {
		l, err := m.tryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if l != nil {
			return l, nil
		}
		if remaining <= 0 {
			return nil, ErrBusy
		}
		if err := m.sleep(ctx, RetryInterval); err != nil {
			return nil, err
		}
		remaining -= RetryInterval
	}
}

func (m *Manager) tryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	var acquired *Lock
	err := m.store.RunTransaction(ctx, func(tx store.Tx) error {
		acquired = nil

		b, err := tx.Get(ctx, key)
		if err != nil {
			return err
		}
		now := m.now()
		if b != nil {
			var cur doc
			if err := json.Unmarshal(b, &cur); err != nil {
				return fmt.Errorf("lock: decoding %s: %w", key, err)
			}
			if cur.ExpiresAt >= now.UnixMilli() {
				return nil
			}
		}

		l := &Lock{m: m, key: key, token: m.newToken()}
		if err := tx.Set(key, doc{ExpiresAt: now.Add(ttl).UnixMilli(), Token: l.token}); err != nil {
			return err
		}
		acquired = l
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lock: acquiring %s: %w", key, err)
	}
	return acquired, nil
}

// Release deletes the lock document if it is still owned by l. Releasing a
// lock that expired and was taken over by someone else leaves the new
// holder's lock intact and returns an error wrapping [ErrNotHeld].
func (l *Lock) Release(ctx context.Context) error {
	var held bool
	err := l.m.store.RunTransaction(ctx, func(tx store.Tx) error {
		held = false

		b, err := tx.Get(ctx, l.key)
		if err != nil || b == nil {
			return err
		}
		var cur doc
		if err := json.Unmarshal(b, &cur); err != nil {
			return fmt.Errorf("lock: decoding %s: %w", l.key, err)
		}
		if cur.Token != l.token {
			return nil
		}
		held = true
		return tx.Delete(l.key)
	})
	if err != nil {
		return fmt.Errorf("lock: releasing %s: %w", l.key, err)
	}
	if !held {
		return fmt.Errorf("%w: %s", ErrNotHeld, l.key)
	}
	return nil
}

// Extend moves the expiry of l to ttl from now. It returns an error wrapping
// [ErrNotHeld] if the lock was released or taken over by someone else.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	var held bool
	err := l.m.store.RunTransaction(ctx, func(tx store.Tx) error {
		held = false

		b, err := tx.Get(ctx, l.key)
		if err != nil || b == nil {
			return err
		}
		var cur doc
		if err := json.Unmarshal(b, &cur); err != nil {
			return fmt.Errorf("lock: decoding %s: %w", l.key, err)
		}
		if cur.Token != l.token {
			return nil
		}
		held = true
		return tx.Set(l.key, doc{ExpiresAt: l.m.now().Add(ttl).UnixMilli(), Token: l.token})
	})
	if err != nil {
		return fmt.Errorf("lock: extending %s: %w", l.key, err)
	}
	if !held {
		return fmt.Errorf("%w: %s", ErrNotHeld, l.key)
	}
	return nil
}

// Hold keeps l alive while work runs under it, extending it by ttl every
// third of ttl. The returned context is canceled, with the extension error
// as its cause, if the lock is lost. Calling stop ends the renewals and
// waits for the last one to finish; it does not release the lock.
func (l *Lock) Hold(ctx context.Context, ttl time.Duration) (held context.Context, stop func()) {
	hctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(ttl/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-hctx.Done():
				return
			case <-ticker.C:
				if err := l.Extend(hctx, ttl); err != nil {
					if hctx.Err() == nil {
						cancel(err)
					}
					return
				}
			}
		}
	}()
	return hctx, func() {
		cancel(context.Canceled)
		<-done
	}
}
