// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/megazu/internal/store"
	"go.astrophena.name/megazu/internal/testutil"
)

const (
	group = "-100123"
	today = "2024-05-01"
)

func newTestLedger(t *testing.T) (*Ledger, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	return New(s, DefaultPolicy), s
}

func mustUser(t *testing.T, l *Ledger, userID string) User {
	t.Helper()
	u, _, err := l.User(t.Context(), group, userID)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestDate(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+5", 5*60*60)
	testutil.AssertEqual(t, Date(time.Date(2024, 5, 2, 3, 0, 0, 0, loc)), "2024-05-01")
}

func TestUserAbsent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	u, exists, err := l.User(t.Context(), group, "42")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, exists, false)
	testutil.AssertEqual(t, u, User{})

	day, err := l.Today(t.Context(), group, "42", today)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, day, Day{})
}

func TestApplyActivity(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	counts, err := l.ApplyActivity(ctx, group, "42", today, Fitness, "zu")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, counts, Counts{Fitness: 1, Attempts: 1})

	counts, err = l.ApplyActivity(ctx, group, "42", today, Shipping, "zu")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, counts, Counts{Fitness: 1, Shipping: 1, Attempts: 2})

	// Second fitness activity on the same date must not be counted.
	_, err = l.ApplyActivity(ctx, group, "42", today, Fitness, "zu")
	if !errors.Is(err, ErrAlreadyLogged) {
		t.Fatalf("want ErrAlreadyLogged, got %v", err)
	}

	// A new date starts a fresh record.
	if _, err := l.ApplyActivity(ctx, group, "42", "2024-05-02", Fitness, "zu-renamed"); err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, mustUser(t, l, "42"), User{
		Username:      "zu-renamed",
		FitnessCount:  2,
		ShippingCount: 1,
		DailyData: map[string]Day{
			today: {
				GymPhotoUploaded:      true,
				ShippingPhotoUploaded: true,
				Attempts:              2,
				KindAttempts:          map[Kind]int{Fitness: 1, Shipping: 1},
			},
			"2024-05-02": {
				GymPhotoUploaded: true,
				Attempts:         1,
				KindAttempts:     map[Kind]int{Fitness: 1},
			},
		},
	})
}

func TestApplyActivityKeepsUsernameWhenEmpty(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	if _, err := l.Register(t.Context(), group, "42", "zu"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ApplyActivity(t.Context(), group, "42", today, Mindfulness, ""); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, mustUser(t, l, "42").Username, "zu")
}

func TestApplyActivityUnknownKind(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	if _, err := l.ApplyActivity(t.Context(), group, "42", today, Kind("napping"), "zu"); err == nil {
		t.Fatal("unknown kinds must be rejected")
	}
}

func TestRecordFailedAttemptTouchesOnlyAttempts(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	if _, err := l.ApplyActivity(ctx, group, "42", today, Fitness, "zu"); err != nil {
		t.Fatal(err)
	}
	before := mustUser(t, l, "42")

	if err := l.RecordFailedAttemptKind(ctx, group, "42", today, Shipping); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailedAttempt(ctx, group, "42", today); err != nil {
		t.Fatal(err)
	}

	after := mustUser(t, l, "42")
	testutil.AssertEqual(t, after.Username, before.Username)
	testutil.AssertEqual(t, after.FitnessCount, before.FitnessCount)
	testutil.AssertEqual(t, after.ShippingCount, before.ShippingCount)
	testutil.AssertEqual(t, after.MindfulnessCount, before.MindfulnessCount)
	testutil.AssertEqual(t, after.Day(today), Day{
		GymPhotoUploaded: true,
		Attempts:         3,
		KindAttempts:     map[Kind]int{Fitness: 1, Shipping: 1},
	})
}

func TestRecordFailedAttemptConcurrent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.RecordFailedAttempt(context.Background(), group, "42", today); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, mustUser(t, l, "42").Day(today).Attempts, 10)
}

func TestPolicy(t *testing.T) {
	t.Parallel()

	day := Day{Attempts: 5, KindAttempts: map[Kind]int{Fitness: 4, Shipping: 1}}

	shared := DefaultPolicy
	testutil.AssertEqual(t, shared.AttemptsUsed(day, Shipping), 5)
	testutil.AssertEqual(t, shared.LimitReached(day, Shipping), true)
	testutil.AssertEqual(t, shared.LimitReached(Day{Attempts: 4}, Fitness), false)

	perKind := DefaultPolicy
	perKind.PerKindAttempts = true
	testutil.AssertEqual(t, perKind.AttemptsUsed(day, Fitness), 4)
	testutil.AssertEqual(t, perKind.LimitReached(day, Fitness), false)
	testutil.AssertEqual(t, perKind.LimitReached(day, Mindfulness), false)
	day.KindAttempts[Fitness] = 5
	testutil.AssertEqual(t, perKind.LimitReached(day, Fitness), true)
}

func TestTopByCount(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	standings, err := l.TopByCount(ctx, group, Fitness, 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(standings), 0)

	// User i logs fitness on i distinct dates.
	for i := 1; i <= 12; i++ {
		userID := fmt.Sprintf("u%02d", i)
		for d := 1; d <= i; d++ {
			if _, err := l.ApplyActivity(ctx, group, userID, fmt.Sprintf("2024-05-%02d", d), Fitness, "user"+userID); err != nil {
				t.Fatal(err)
			}
		}
	}
	// Another group must not leak into the ranking.
	if _, err := l.ApplyActivity(ctx, "-100999", "big", today, Fitness, "outsider"); err != nil {
		t.Fatal(err)
	}

	standings, err = l.TopByCount(ctx, group, Fitness, 10)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(standings), 10)
	testutil.AssertEqual(t, standings[0], Standing{UserID: "u12", Username: "useru12", Count: 12})
	for i := 1; i < len(standings); i++ {
		if standings[i].Count > standings[i-1].Count {
			t.Fatalf("ranking is not monotonic at %d: %+v", i, standings)
		}
	}

	standings, err = l.TopByCount(ctx, group, Shipping, 3)
	if err != nil {
		t.Fatal(err)
	}
	// Everyone has zero ships: ties are ordered by user ID.
	testutil.AssertEqual(t, []string{standings[0].UserID, standings[1].UserID, standings[2].UserID}, []string{"u01", "u02", "u03"})
}

func TestCreditMentions(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	for id, name := range map[string]string{"1": "alice", "2": "bob", "3": "carol"} {
		if _, err := l.Register(ctx, group, id, name); err != nil {
			t.Fatal(err)
		}
	}
	// Carol already logged mindfulness today.
	if _, err := l.ApplyActivity(ctx, group, "3", today, Mindfulness, "carol"); err != nil {
		t.Fatal(err)
	}

	credited, err := l.CreditMentions(ctx, group, today, []string{"bob", "stranger", "carol", "alice", "bob"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, credited, []string{"bob", "alice"})

	for _, id := range []string{"1", "2"} {
		u := mustUser(t, l, id)
		testutil.AssertEqual(t, u.MindfulnessCount, 1)
		testutil.AssertEqual(t, u.Day(today).MindfulnessPhotoUploaded, true)
		// Credit is not a submission of their own.
		testutil.AssertEqual(t, u.Day(today).Attempts, 0)
	}
	testutil.AssertEqual(t, mustUser(t, l, "3").MindfulnessCount, 1)

	// Crediting again the same day is a no-op.
	credited, err = l.CreditMentions(ctx, group, today, []string{"alice"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(credited), 0)
	testutil.AssertEqual(t, mustUser(t, l, "1").MindfulnessCount, 1)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	created, err := l.Register(ctx, group, "42", "zu")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, created, true)

	if _, err := l.ApplyActivity(ctx, group, "42", today, Fitness, "zu"); err != nil {
		t.Fatal(err)
	}

	created, err = l.Register(ctx, group, "42", "someone-else")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, created, false)
	u := mustUser(t, l, "42")
	testutil.AssertEqual(t, u.Username, "zu")
	testutil.AssertEqual(t, u.FitnessCount, 1)
}

func TestRoastBudget(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)
	ctx := t.Context()

	for i := range 3 {
		ok, err := l.TryConsumeRoast(ctx, group, "42", today, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("roast %d must be allowed", i+1)
		}
	}
	ok, err := l.TryConsumeRoast(ctx, group, "42", today, 3)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, mustUser(t, l, "42").Day(today).RoastCount, 3)

	if err := l.RefundRoast(ctx, group, "42", today); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, mustUser(t, l, "42").Day(today).RoastCount, 2)

	// Refunds never go below zero.
	if err := l.RefundRoast(ctx, group, "42", "2024-05-02"); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, mustUser(t, l, "42").Day("2024-05-02").RoastCount, 0)

	// Roasts don't consume submission attempts.
	testutil.AssertEqual(t, mustUser(t, l, "42").Day(today).Attempts, 0)
}

func TestRoastBudgetConcurrent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLedger(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryConsumeRoast(context.Background(), group, "42", today, 3)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, granted, 3)
}
