// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package httplogger provides an [http.RoundTripper] middleware that logs
// outgoing requests at debug level.
package httplogger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// New wraps t so that every round trip is logged to log with its method,
// URL, status and duration. Secrets in the URL and in errors are masked by
// scrub, which may be nil. A nil t means [http.DefaultTransport].
func New(t http.RoundTripper, log *slog.Logger, scrub *strings.Replacer) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	if scrub == nil {
		scrub = strings.NewReplacer()
	}
	return &transport{next: t, log: log, scrub: scrub, now: time.Now}
}

type transport struct {
	next  http.RoundTripper
	log   *slog.Logger
	scrub *strings.Replacer
	now   func() time.Time
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if !t.log.Enabled(ctx, slog.LevelDebug) {
		return t.next.RoundTrip(r)
	}

	start := t.now()
	resp, err := t.next.RoundTrip(r)
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("url", t.scrub.Replace(r.URL.String())),
		slog.Duration("took", t.now().Sub(start)),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("status", resp.StatusCode))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", t.scrub.Replace(err.Error())))
	}
	t.log.LogAttrs(ctx, slog.LevelDebug, "http request", attrs...)
	return resp, err
}
