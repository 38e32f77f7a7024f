// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"cmp"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"go.astrophena.name/megazu/internal/version"
)

// DebugHandler serves a plain text debugging index at /debug/ and helps to
// register more debug endpoints.
//
// Methods of DebugHandler can be safely called by multiple goroutines.
type DebugHandler struct {
	mux *http.ServeMux

	mu      sync.RWMutex
	kvfuncs []kvfunc
	links   []link
}

type (
	kvfunc struct {
		k string
		v func() any
	}
	link struct{ URL, Desc string }
)

// Debugger returns the [DebugHandler] registered on mux at /debug/, creating it
// if necessary.
func Debugger(mux *http.ServeMux) *DebugHandler {
	h, pat := mux.Handler(&http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/debug/"}})
	if d, ok := h.(*DebugHandler); ok && pat == "/debug/" {
		return d
	}
	ret := &DebugHandler{mux: mux}
	mux.Handle("/debug/", ret)

	if hostname, err := os.Hostname(); err == nil {
		ret.KV("Machine", hostname)
	}
	ret.KVFunc("Uptime", func() any { return time.Since(timeStart).Round(time.Second) })
	ret.Handle("pprof/", "pprof", http.HandlerFunc(pprof.Index))
	mux.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))

	return ret
}

var timeStart = time.Now()

// ServeHTTP implements the [http.Handler] interface.
func (d *DebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/debug/" {
		RespondJSONError(w, r, ErrNotFound)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s\n", version.Version())
	for _, kv := range d.kvfuncs {
		fmt.Fprintf(w, "%s: %v\n", kv.k, kv.v())
	}
	fmt.Fprintln(w)
	for _, l := range d.links {
		fmt.Fprintf(w, "%s\t%s\n", l.URL, l.Desc)
	}
}

// Handle registers handler at /debug/<slug> and lists it on /debug/.
func (d *DebugHandler) Handle(slug, desc string, handler http.Handler) {
	href := "/debug/" + slug
	d.mux.Handle(href, handler)
	d.Link(href, desc)
}

// KV adds a key/value line to /debug/.
func (d *DebugHandler) KV(k string, v any) {
	d.KVFunc(k, func() any { return v })
}

// KVFunc adds a key/value line to /debug/. v is called on every render.
func (d *DebugHandler) KVFunc(k string, v func() any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kvfuncs = append(d.kvfuncs, kvfunc{k, v})
}

// Link adds a URL and description line to /debug/.
func (d *DebugHandler) Link(url, desc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, link{url, desc})
	slices.SortStableFunc(d.links, func(a, b link) int {
		return cmp.Compare(a.Desc, b.Desc)
	})
}
