// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"maps"
	"slices"

	"go.astrophena.name/megazu/internal/ledger"
)

const topRoasters = 10

// Totals are activity counts.
type Totals struct {
	Fitness     int `yaml:"fitness"`
	Shipping    int `yaml:"shipping"`
	Mindfulness int `yaml:"mindfulness"`
	Roasts      int `yaml:"roasts"`
}

// Sum returns the number of all activities, roasts included.
func (t Totals) Sum() int { return t.Fitness + t.Shipping + t.Mindfulness + t.Roasts }

func (t *Totals) addDay(d ledger.Day) {
	if d.GymPhotoUploaded {
		t.Fitness++
	}
	if d.ShippingPhotoUploaded {
		t.Shipping++
	}
	if d.MindfulnessPhotoUploaded {
		t.Mindfulness++
	}
	t.Roasts += d.RoastCount
}

// Period are the totals of a day or a month.
type Period struct {
	Period string `yaml:"period"`
	Totals `yaml:",inline"`
}

// Roaster is a member who ordered roasts.
type Roaster struct {
	Group    string `yaml:"group"`
	Username string `yaml:"username"`
	Roasts   int    `yaml:"roasts"`
}

// Stats are the statistics of a set of groups.
type Stats struct {
	TotalGroups  int       `yaml:"totalGroups"`
	ActiveGroups int       `yaml:"activeGroups"`
	TotalUsers   int       `yaml:"totalUsers"`
	ActiveUsers  int       `yaml:"activeUsers"`
	Activities   Totals    `yaml:"activities"`
	TopRoasters  []Roaster `yaml:"topRoasters"`
	Monthly      []Period  `yaml:"monthly"`
	Daily        []Period  `yaml:"daily"`
}

// compute aggregates members keyed by group ID and then user ID. Groups
// without members are not counted.
func compute(groups map[string]map[string]ledger.User) Stats {
	var (
		s       Stats
		daily   = make(map[string]*Totals)
		monthly = make(map[string]*Totals)
	)
	period := func(m map[string]*Totals, key string) *Totals {
		t, ok := m[key]
		if !ok {
			t = new(Totals)
			m[key] = t
		}
		return t
	}

	for _, groupID := range slices.Sorted(maps.Keys(groups)) {
		users := groups[groupID]
		if len(users) == 0 {
			continue
		}
		s.TotalGroups++
		groupActive := false

		for _, userID := range slices.Sorted(maps.Keys(users)) {
			u := users[userID]
			s.TotalUsers++
			if u.FitnessCount+u.ShippingCount+u.MindfulnessCount > 0 {
				s.ActiveUsers++
				groupActive = true
			}
			s.Activities.Fitness += u.FitnessCount
			s.Activities.Shipping += u.ShippingCount
			s.Activities.Mindfulness += u.MindfulnessCount

			var roasts int
			for date, d := range u.DailyData {
				period(daily, date).addDay(d)
				if len(date) >= len("2006-01") {
					period(monthly, date[:len("2006-01")]).addDay(d)
				}
				roasts += d.RoastCount
			}
			s.Activities.Roasts += roasts
			if roasts > 0 {
				s.TopRoasters = append(s.TopRoasters, Roaster{
					Group:    groupID,
					Username: cmp.Or(u.Username, "User"+userID),
					Roasts:   roasts,
				})
			}
		}
		if groupActive {
			s.ActiveGroups++
		}
	}

	slices.SortStableFunc(s.TopRoasters, func(a, b Roaster) int { return cmp.Compare(b.Roasts, a.Roasts) })
	if len(s.TopRoasters) > topRoasters {
		s.TopRoasters = s.TopRoasters[:topRoasters]
	}
	s.Monthly = periods(monthly)
	s.Daily = periods(daily)
	return s
}

// periods returns totals newest first.
func periods(m map[string]*Totals) []Period {
	ps := make([]Period, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		ps = append(ps, Period{Period: key, Totals: *m[key]})
	}
	slices.Reverse(ps)
	return ps
}

// ratio returns a/b, or 0 if b is 0.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
