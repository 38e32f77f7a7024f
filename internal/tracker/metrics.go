// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tracker

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	submissions *prometheus.CounterVec
	roasts      *prometheus.CounterVec
	commands    *prometheus.CounterVec
	classify    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "megazu",
			Name:      "submissions_total",
			Help:      "Photo submissions by activity kind and outcome.",
		}, []string{"kind", "outcome"}),
		roasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "megazu",
			Name:      "roasts_total",
			Help:      "Roast requests by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "megazu",
			Name:      "commands_total",
			Help:      "Text commands received.",
		}, []string{"command"}),
		classify: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "megazu",
			Name:      "classify_duration_seconds",
			Help:      "Time spent waiting for the language model.",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.submissions, m.roasts, m.commands, m.classify)
	}
	return m
}
