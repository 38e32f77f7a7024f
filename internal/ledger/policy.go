// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package ledger

// Policy holds daily limits.
type Policy struct {
	// MaxAttempts is the number of submissions allowed per date.
	MaxAttempts int
	// PerKindAttempts makes MaxAttempts apply to each activity kind
	// separately. When false, submissions of all kinds share one budget.
	PerKindAttempts bool
	// RoastCap is the number of roasts a member can order per date.
	RoastCap int
}

// DefaultPolicy is the policy the bot runs with.
var DefaultPolicy = Policy{
	MaxAttempts:     5,
	PerKindAttempts: false,
	RoastCap:        3,
}

// AttemptsUsed returns the number of submissions of kind counted against
// the daily budget.
func (p Policy) AttemptsUsed(d Day, kind Kind) int {
	if p.PerKindAttempts {
		return d.KindAttempts[kind]
	}
	return d.Attempts
}

// LimitReached reports whether no more submissions of kind are allowed.
func (p Policy) LimitReached(d Day, kind Kind) bool {
	return p.AttemptsUsed(d, kind) >= p.MaxAttempts
}
