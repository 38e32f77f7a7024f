// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package ledger

import (
	"context"
	"fmt"

	"go.astrophena.name/megazu/internal/store"
)

// TryConsumeRoast takes one roast from the daily budget of a group member.
// It reports false without writing if dailyCap roasts were already ordered
// for date. The check and the increment happen in one transaction, so
// concurrent requests can't exceed the cap.
func (l *Ledger) TryConsumeRoast(ctx context.Context, groupID, userID, date string, dailyCap int) (bool, error) {
	path := UserPath(groupID, userID)
	var ok bool
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		ok = false
		u, _, err := readUser(ctx, tx, path)
		if err != nil {
			return err
		}
		n := u.Day(date).RoastCount
		if n >= dailyCap {
			return nil
		}
		ok = true
		return tx.Merge(path, map[string]any{
			"dailyData": map[string]any{date: map[string]any{"roastCount": n + 1}},
		})
	})
	if err != nil {
		return false, fmt.Errorf("ledger: consuming roast of %s: %w", path, err)
	}
	return ok, nil
}

// RefundRoast gives back a roast taken by [Ledger.TryConsumeRoast] that
// could not be delivered.
func (l *Ledger) RefundRoast(ctx context.Context, groupID, userID, date string) error {
	path := UserPath(groupID, userID)
	err := l.store.RunTransaction(ctx, func(tx store.Tx) error {
		u, _, err := readUser(ctx, tx, path)
		if err != nil {
			return err
		}
		n := u.Day(date).RoastCount
		if n <= 0 {
			return nil
		}
		return tx.Merge(path, map[string]any{
			"dailyData": map[string]any{date: map[string]any{"roastCount": n - 1}},
		})
	})
	if err != nil {
		return fmt.Errorf("ledger: refunding roast of %s: %w", path, err)
	}
	return nil
}
