// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.astrophena.name/megazu/internal/store"
)

// Standing is a place in a leaderboard.
type Standing struct {
	UserID   string
	Username string
	Count    int
}

// TopByCount returns at most limit members of a group ordered by the
// aggregate counter of kind, highest first. Ties keep store order.
func (l *Ledger) TopByCount(ctx context.Context, groupID string, kind Kind, limit int) ([]Standing, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("ledger: unknown kind %q", kind)
	}
	docs, err := l.store.Query(ctx, store.Query{
		Collection: UsersCollection(groupID),
		OrderBy:    kind.CountField(),
		Desc:       true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: ranking %s: %w", kind, err)
	}

	standings := make([]Standing, 0, len(docs))
	for _, d := range docs {
		var u User
		if err := json.Unmarshal(d.Data, &u); err != nil {
			return nil, fmt.Errorf("ledger: decoding %s: %w", d.Path, err)
		}
		standings = append(standings, Standing{UserID: d.ID(), Username: u.Username, Count: u.Count(kind)})
	}
	return standings, nil
}

// Members returns all members of a group keyed by user ID.
func (l *Ledger) Members(ctx context.Context, groupID string) (map[string]User, error) {
	docs, err := l.store.Query(ctx, store.Query{Collection: UsersCollection(groupID)})
	if err != nil {
		return nil, fmt.Errorf("ledger: listing members of %s: %w", groupID, err)
	}
	users := make(map[string]User, len(docs))
	for _, d := range docs {
		var u User
		if err := json.Unmarshal(d.Data, &u); err != nil {
			return nil, fmt.Errorf("ledger: decoding %s: %w", d.Path, err)
		}
		users[d.ID()] = u
	}
	return users, nil
}

// CreditMentions counts a mindfulness activity for date for every member of
// a group registered under one of usernames that has not logged one yet.
// All updates are applied in one transaction. It returns the credited
// usernames in the order they were given.
func (l *Ledger) CreditMentions(ctx context.Context, groupID, date string, usernames []string) ([]string, error) {
	paths := make(map[string]string) // username -> path
	for _, name := range usernames {
		if _, seen := paths[name]; seen || name == "" {
			continue
		}
		docs, err := l.store.Query(ctx, store.Query{
			Collection: UsersCollection(groupID),
			Where:      []store.Filter{{Field: "username", Value: name}},
			Limit:      1,
		})
		if err != nil {
			return nil, fmt.Errorf("ledger: looking up %q: %w", name, err)
		}
		if len(docs) == 0 {
			paths[name] = ""
			continue
		}
		paths[name] = docs[0].Path
	}

	var credited map[string]bool // path -> credited
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		credited = make(map[string]bool)
		users := make(map[string]User)

		var sorted []string
		for _, p := range paths {
			if p != "" && !slices.Contains(sorted, p) {
				sorted = append(sorted, p)
			}
		}
		slices.Sort(sorted)

		for _, p := range sorted {
			u, exists, err := readUser(ctx, tx, p)
			if err != nil {
				return err
			}
			if exists && !u.Day(date).Logged(Mindfulness) {
				users[p] = u
			}
		}
		for _, p := range sorted {
			u, ok := users[p]
			if !ok {
				continue
			}
			if err := tx.Merge(p, map[string]any{
				Mindfulness.CountField(): u.MindfulnessCount + 1,
				"dailyData": map[string]any{date: map[string]any{
					Mindfulness.FlagField(): true,
				}},
			}); err != nil {
				return err
			}
			credited[p] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: crediting mentions in %s: %w", groupID, err)
	}

	var out []string
	for _, name := range usernames {
		p := paths[name]
		if p != "" && credited[p] && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out, nil
}
