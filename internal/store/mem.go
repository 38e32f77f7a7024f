// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"cmp"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemStore is an in-memory implementation of the [Store] interface.
// Transactions are serialized by a single mutex.
type MemStore struct {
	mu   sync.Mutex
	docs map[string][]byte

	// persist, if set, is called with the next state before it is committed.
	persist func(map[string][]byte) error
}

// NewMemStore returns a new empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

// Get returns the document at path.
func (s *MemStore) Get(ctx context.Context, p string) ([]byte, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.docs[p]), nil
}

// RunTransaction runs fn while holding the store mutex.
func (s *MemStore) RunTransaction(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{read: func(ctx context.Context, p string) ([]byte, error) {
		return slices.Clone(s.docs[p]), nil
	}}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	changes, err := t.resolve(ctx)
	if err != nil || len(changes) == 0 {
		return err
	}

	next := s.docs
	if s.persist != nil {
		next = maps.Clone(s.docs)
	}
	for _, c := range changes {
		if c.data == nil {
			delete(next, c.path)
			continue
		}
		next[c.path] = c.data
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return err
		}
		s.docs = next
	}
	return nil
}

// Query returns documents matching q.
func (s *MemStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []Document
	for p, data := range s.docs {
		if collectionOf(p) == q.Collection {
			docs = append(docs, Document{Path: p, Data: slices.Clone(data)})
		}
	}
	return evalQuery(docs, q)
}

// Close implements the [Store] interface. It is a no-op.
func (s *MemStore) Close() error { return nil }

type queryRow struct {
	doc    Document
	fields map[string]any
}

// evalQuery filters, sorts and limits docs of a single collection.
func evalQuery(docs []Document, q Query) ([]Document, error) {
	rows := make([]queryRow, 0, len(docs))
outer:
	for _, d := range docs {
		var fields map[string]any
		if err := json.Unmarshal(d.Data, &fields); err != nil {
			return nil, err
		}
		for _, f := range q.Where {
			if v, ok := fields[f.Field].(string); !ok || v != f.Value {
				continue outer
			}
		}
		rows = append(rows, queryRow{doc: d, fields: fields})
	}

	slices.SortFunc(rows, func(a, b queryRow) int {
		if q.OrderBy != "" {
			c := cmp.Compare(number(a.fields[q.OrderBy]), number(b.fields[q.OrderBy]))
			if q.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(a.doc.Path, b.doc.Path)
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}
