// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package httplogger

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"go.astrophena.name/megazu/internal/testutil"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody}, nil
	})
	c := &http.Client{Transport: New(next, newLogger(&buf, slog.LevelDebug), strings.NewReplacer("s3cr3t", "[EXPUNGED]"))}

	resp, err := c.Get("https://api.example.com/bots3cr3t/getMe")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	out := buf.String()
	testutil.AssertStringContains(t, out, "status=418")
	testutil.AssertStringContains(t, out, "/bot[EXPUNGED]/getMe")
	if strings.Contains(out, "s3cr3t") {
		t.Fatalf("secret leaked into log: %s", out)
	}
}

func TestRoundTripError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial s3cr3t: refused")
	})
	c := &http.Client{Transport: New(next, newLogger(&buf, slog.LevelDebug), strings.NewReplacer("s3cr3t", "[EXPUNGED]"))}

	if _, err := c.Get("https://api.example.com/"); err == nil {
		t.Fatal("want error")
	}
	testutil.AssertStringContains(t, buf.String(), "dial [EXPUNGED]: refused")
}

func TestQuietAboveDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	c := &http.Client{Transport: New(next, newLogger(&buf, slog.LevelInfo), nil)}

	resp, err := c.Get("https://api.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	testutil.AssertEqual(t, buf.String(), "")
}
