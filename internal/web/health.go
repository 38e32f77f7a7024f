// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"net/http"
	"net/url"

	"go.astrophena.name/megazu/internal/syncx"
)

// Health returns the [HealthHandler] registered on mux at /health, creating it
// if necessary.
func Health(mux *http.ServeMux) *HealthHandler {
	h, pat := mux.Handler(&http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/health"}})
	if hh, ok := h.(*HealthHandler); ok && pat == "/health" {
		return hh
	}
	ret := &HealthHandler{checks: syncx.Protect(make(checksMap))}
	mux.Handle("/health", ret)
	return ret
}

// HealthHandler is an HTTP handler that reports the health of the running
// service.
type HealthHandler struct{ checks *syncx.Protected[checksMap] }

type checksMap = map[string]HealthFunc

// HealthFunc reports the state of a particular subsystem. A non-nil error
// marks the subsystem as unhealthy.
type HealthFunc func(ctx context.Context) error

// RegisterFunc registers the health check function by the given name. It
// panics if a check with this name already exists.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.checks.Access(func(checks checksMap) {
		if _, dup := checks[name]; dup {
			panic("health: health check function with this name already exists")
		}
		checks[name] = f
	})
}

// HealthResponse represents a response of the /health endpoint.
type HealthResponse struct {
	OK     bool                     `json:"ok"`
	Checks map[string]CheckResponse `json:"checks"`
}

// CheckResponse represents a status of an individual check.
type CheckResponse struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// ServeHTTP implements the [http.Handler] interface.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hr := &HealthResponse{
		OK:     true,
		Checks: make(map[string]CheckResponse),
	}

	var checks checksMap
	h.checks.RAccess(func(m checksMap) {
		checks = make(checksMap, len(m))
		for name, f := range m {
			checks[name] = f
		}
	})

	for name, f := range checks {
		cr := CheckResponse{Status: "ok", OK: true}
		if err := f(r.Context()); err != nil {
			cr = CheckResponse{Status: err.Error()}
			hr.OK = false
		}
		hr.Checks[name] = cr
	}

	code := http.StatusOK
	if !hr.OK {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, hr)
}
