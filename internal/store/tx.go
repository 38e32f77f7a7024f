// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

type opKind int

const (
	opSet opKind = iota
	opMerge
	opDelete
)

type write struct {
	op   opKind
	path string
	doc  map[string]any
}

// change is the final state of a document after a commit. A nil data
// means the document is deleted.
type change struct {
	path string
	data []byte
}

// tx buffers writes for a backend. read must observe the state inside the
// backend transaction.
type tx struct {
	read   func(ctx context.Context, path string) ([]byte, error)
	writes []write
}

func (t *tx) Get(ctx context.Context, p string) ([]byte, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	if err := validatePath(p); err != nil {
		return nil, err
	}
	return t.read(ctx, p)
}

func (t *tx) Set(p string, doc any) error {
	if err := validatePath(p); err != nil {
		return err
	}
	m, err := toObject(doc)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", p, err)
	}
	t.writes = append(t.writes, write{op: opSet, path: p, doc: m})
	return nil
}

func (t *tx) Merge(p string, patch map[string]any) error {
	if err := validatePath(p); err != nil {
		return err
	}
	m, err := toObject(patch)
	if err != nil {
		return fmt.Errorf("store: merge %q: %w", p, err)
	}
	t.writes = append(t.writes, write{op: opMerge, path: p, doc: m})
	return nil
}

func (t *tx) Delete(p string) error {
	if err := validatePath(p); err != nil {
		return err
	}
	t.writes = append(t.writes, write{op: opDelete, path: p})
	return nil
}

// resolve folds the buffered writes into final document states, reading the
// current state of merged documents through t.read. Changes are sorted by
// path.
func (t *tx) resolve(ctx context.Context) ([]change, error) {
	if len(t.writes) == 0 {
		return nil, nil
	}
	state := make(map[string]map[string]any)
	for _, w := range t.writes {
		switch w.op {
		case opSet:
			state[w.path] = w.doc
		case opDelete:
			state[w.path] = nil
		case opMerge:
			cur, seen := state[w.path]
			if !seen {
				b, err := t.read(ctx, w.path)
				if err != nil {
					return nil, err
				}
				if b != nil {
					if err := json.Unmarshal(b, &cur); err != nil {
						return nil, fmt.Errorf("store: decoding %q: %w", w.path, err)
					}
				}
			}
			if cur == nil {
				cur = make(map[string]any)
			}
			deepMerge(cur, w.doc)
			state[w.path] = cur
		}
	}

	changes := make([]change, 0, len(state))
	for _, p := range slices.Sorted(maps.Keys(state)) {
		doc := state[p]
		if doc == nil {
			changes = append(changes, change{path: p})
			continue
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change{path: p, data: b})
	}
	return changes, nil
}

// toObject normalizes v into a generic JSON object.
func toObject(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("document must be a JSON object, got %s", b)
	}
	return m, nil
}

func deepMerge(dst, patch map[string]any) {
	for k, v := range patch {
		pm, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		dm, ok := dst[k].(map[string]any)
		if !ok {
			dm = make(map[string]any, len(pm))
			dst[k] = dm
		}
		deepMerge(dm, pm)
	}
}
