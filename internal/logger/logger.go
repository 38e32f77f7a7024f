// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger wires structured logging through contexts and keeps a ring
// buffer of recent log lines that can be streamed over HTTP.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

type ctxKey struct{}

// Level controls the minimum level of loggers created by [New].
var Level = new(slog.LevelVar)

// New returns a text logger writing to w that honors [Level].
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level}))
}

// Put returns a copy of ctx carrying l.
func Put(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the logger carried by ctx, or [slog.Default] if there is none.
func Get(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Printf adapts the logger carried by ctx to a [Logf] that logs at info
// level.
func Printf(ctx context.Context) Logf {
	l := Get(ctx)
	return func(format string, args ...any) {
		l.InfoContext(ctx, fmt.Sprintf(format, args...))
	}
}
