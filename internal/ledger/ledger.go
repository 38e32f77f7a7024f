// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package ledger keeps per-user activity counters of a group in a
// [store.Store].
//
// Every member of a group has a document at groups/{groupID}/users/{userID}
// holding aggregate counters and a dailyData map keyed by UTC date
// (YYYY-MM-DD). All mutations are transactional read-modify-write cycles
// that merge only the fields they touch.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.astrophena.name/megazu/internal/store"
)

// ErrAlreadyLogged is returned by [Ledger.ApplyActivity] when the activity
// was already counted for the date.
var ErrAlreadyLogged = errors.New("ledger: activity already logged for this date")

// Kind is an activity kind.
type Kind string

// Activity kinds.
const (
	Fitness     Kind = "fitness"
	Shipping    Kind = "shipping"
	Mindfulness Kind = "mindfulness"
)

// Kinds lists all activity kinds.
var Kinds = []Kind{Fitness, Shipping, Mindfulness}

// CountField returns the name of the aggregate counter field of k.
func (k Kind) CountField() string { return string(k) + "Count" }

// FlagField returns the name of the daily flag field of k.
func (k Kind) FlagField() string {
	switch k {
	case Fitness:
		return "gymPhotoUploaded"
	case Shipping:
		return "shippingPhotoUploaded"
	case Mindfulness:
		return "mindfulnessPhotoUploaded"
	}
	return ""
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k.FlagField() != "" }

// Day is the daily record of a user.
type Day struct {
	GymPhotoUploaded         bool         `json:"gymPhotoUploaded"`
	ShippingPhotoUploaded    bool         `json:"shippingPhotoUploaded"`
	MindfulnessPhotoUploaded bool         `json:"mindfulnessPhotoUploaded"`
	Attempts                 int          `json:"attempts"`
	RoastCount               int          `json:"roastCount"`
	KindAttempts             map[Kind]int `json:"kindAttempts,omitempty"`
}

// Logged reports whether the activity of kind k was counted.
func (d Day) Logged(k Kind) bool {
	switch k {
	case Fitness:
		return d.GymPhotoUploaded
	case Shipping:
		return d.ShippingPhotoUploaded
	case Mindfulness:
		return d.MindfulnessPhotoUploaded
	}
	return false
}

// User is the aggregate record of a group member.
type User struct {
	Username         string         `json:"username,omitempty"`
	FitnessCount     int            `json:"fitnessCount"`
	ShippingCount    int            `json:"shippingCount"`
	MindfulnessCount int            `json:"mindfulnessCount"`
	DailyData        map[string]Day `json:"dailyData,omitempty"`
}

// Count returns the aggregate counter of kind k.
func (u User) Count(k Kind) int {
	switch k {
	case Fitness:
		return u.FitnessCount
	case Shipping:
		return u.ShippingCount
	case Mindfulness:
		return u.MindfulnessCount
	}
	return 0
}

// Day returns the daily record for date, zero if there is none.
func (u User) Day(date string) Day { return u.DailyData[date] }

// Counts are the counters of a user after an update.
type Counts struct {
	Fitness     int
	Shipping    int
	Mindfulness int
	Attempts    int
}

func countsOf(u User, date string) Counts {
	return Counts{
		Fitness:     u.FitnessCount,
		Shipping:    u.ShippingCount,
		Mindfulness: u.MindfulnessCount,
		Attempts:    u.Day(date).Attempts,
	}
}

// Date returns the ledger date of t.
func Date(t time.Time) string { return t.UTC().Format(time.DateOnly) }

// UsersCollection returns the collection holding members of a group.
func UsersCollection(groupID string) string { return "groups/" + groupID + "/users" }

// UserPath returns the document path of a group member.
func UserPath(groupID, userID string) string { return UsersCollection(groupID) + "/" + userID }

// Ledger reads and updates activity counters.
type Ledger struct {
	store  store.Store
	policy Policy
}

// New returns a new Ledger keeping counters in s.
func New(s store.Store, p Policy) *Ledger {
	return &Ledger{store: s, policy: p}
}

// Policy returns the daily limits enforced with this ledger.
func (l *Ledger) Policy() Policy { return l.policy }

type getter interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// readUser reads a user document, normalizing an absent document to a zero
// User.
func readUser(ctx context.Context, g getter, path string) (User, bool, error) {
	b, err := g.Get(ctx, path)
	if err != nil {
		return User{}, false, err
	}
	if b == nil {
		return User{}, false, nil
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return User{}, false, fmt.Errorf("ledger: decoding %s: %w", path, err)
	}
	return u, true, nil
}

// User returns the record of a group member. The boolean result reports
// whether the member has a document at all.
func (l *Ledger) User(ctx context.Context, groupID, userID string) (User, bool, error) {
	return readUser(ctx, l.store, UserPath(groupID, userID))
}

// Today returns the daily record of a group member for date.
func (l *Ledger) Today(ctx context.Context, groupID, userID, date string) (Day, error) {
	u, _, err := l.User(ctx, groupID, userID)
	if err != nil {
		return Day{}, err
	}
	return u.Day(date), nil
}

// ApplyActivity counts a valid activity of kind for date: it sets the daily
// flag, increments the aggregate counter and the attempts of the date, and
// records username. It returns [ErrAlreadyLogged] without writing anything
// if the flag is already set.
func (l *Ledger) ApplyActivity(ctx context.Context, groupID, userID, date string, kind Kind, username string) (Counts, error) {
	if !kind.Valid() {
		return Counts{}, fmt.Errorf("ledger: unknown kind %q", kind)
	}
	path := UserPath(groupID, userID)

	var counts Counts
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		u, _, err := readUser(ctx, tx, path)
		if err != nil {
			return err
		}
		day := u.Day(date)
		if day.Logged(kind) {
			return ErrAlreadyLogged
		}

		count := u.Count(kind) + 1
		day.Attempts++
		dayPatch := map[string]any{
			kind.FlagField(): true,
			"attempts":       day.Attempts,
			"kindAttempts":   map[string]any{string(kind): day.KindAttempts[kind] + 1},
		}
		patch := map[string]any{
			kind.CountField(): count,
			"dailyData":       map[string]any{date: dayPatch},
		}
		if username != "" {
			patch["username"] = username
		}
		if err := tx.Merge(path, patch); err != nil {
			return err
		}

		counts = countsOf(u, date)
		counts.Attempts = day.Attempts
		switch kind {
		case Fitness:
			counts.Fitness = count
		case Shipping:
			counts.Shipping = count
		case Mindfulness:
			counts.Mindfulness = count
		}
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("ledger: applying %s activity to %s: %w", kind, path, err)
	}
	return counts, nil
}

// RecordFailedAttempt increments only the attempts of date.
func (l *Ledger) RecordFailedAttempt(ctx context.Context, groupID, userID, date string) error {
	return l.RecordFailedAttemptKind(ctx, groupID, userID, date, "")
}

// RecordFailedAttemptKind is like [Ledger.RecordFailedAttempt], but also
// increments the per-kind attempts of kind, if kind is not empty.
func (l *Ledger) RecordFailedAttemptKind(ctx context.Context, groupID, userID, date string, kind Kind) error {
	path := UserPath(groupID, userID)
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		u, _, err := readUser(ctx, tx, path)
		if err != nil {
			return err
		}
		day := u.Day(date)
		dayPatch := map[string]any{"attempts": day.Attempts + 1}
		if kind != "" {
			dayPatch["kindAttempts"] = map[string]any{string(kind): day.KindAttempts[kind] + 1}
		}
		return tx.Merge(path, map[string]any{
			"dailyData": map[string]any{date: dayPatch},
		})
	})
	if err != nil {
		return fmt.Errorf("ledger: recording failed attempt for %s: %w", path, err)
	}
	return nil
}

// Register creates a zero-count record for a group member named username.
// It reports whether the record was created, and leaves an existing record
// untouched.
func (l *Ledger) Register(ctx context.Context, groupID, userID, username string) (bool, error) {
	path := UserPath(groupID, userID)
	var created bool
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		_, exists, err := readUser(ctx, tx, path)
		if err != nil || exists {
			created = false
			return err
		}
		created = true
		return tx.Set(path, User{Username: username})
	})
	if err != nil {
		return false, fmt.Errorf("ledger: registering %s: %w", path, err)
	}
	return created, nil
}
