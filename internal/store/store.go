// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements a transactional JSON document store backed
// in-memory, by a JSON file, by SQLite or by PostgreSQL.
//
// Documents live at slash-separated paths with an even number of segments,
// like "groups/-100123/users/42". The parent of a document path is its
// collection ("groups/-100123/users").
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Store is a JSON document store.
type Store interface {
	// Get returns the document at path. It returns (nil, nil) if the document
	// does not exist.
	Get(ctx context.Context, path string) ([]byte, error)
	// RunTransaction runs fn in a serializable transaction. Writes made
	// through the Tx are buffered and applied atomically after fn returns nil.
	// If fn returns an error, nothing is written and the error is returned
	// as is.
	//
	// fn must not call methods of the Store itself.
	RunTransaction(ctx context.Context, fn func(Tx) error) error
	// Query returns documents of a collection matching q.
	Query(ctx context.Context, q Query) ([]Document, error)
	// Close closes the store and releases any resources.
	Close() error
}

// Writer buffers document writes.
type Writer interface {
	// Set replaces the document at path with the JSON encoding of doc, which
	// must encode to a JSON object.
	Set(path string, doc any) error
	// Merge deep-merges patch into the document at path, creating it if
	// absent. Nested objects are merged key by key; any other value
	// replaces the existing one.
	Merge(path string, patch map[string]any) error
	// Delete deletes the document at path. Deleting an absent document is
	// not an error.
	Delete(path string) error
}

// Tx is a transaction. All reads must happen before any writes.
type Tx interface {
	Writer
	// Get returns the document at path, or (nil, nil) if it does not exist.
	Get(ctx context.Context, path string) ([]byte, error)
}

// Batch atomically applies the writes made by fn.
func Batch(ctx context.Context, s Store, fn func(Writer) error) error {
	return s.RunTransaction(ctx, func(tx Tx) error { return fn(tx) })
}

// Document is a stored document.
type Document struct {
	Path string
	Data []byte
}

// ID returns the last segment of the document path.
func (d Document) ID() string { return path.Base(d.Path) }

// Query selects documents of a collection.
type Query struct {
	// Collection is the parent path of the selected documents.
	Collection string
	// Where lists equality filters on top-level string fields.
	Where []Filter
	// OrderBy is an optional top-level numeric field to sort by. Missing or
	// non-numeric values sort as zero. Ties, and queries without OrderBy,
	// are ordered by document path.
	OrderBy string
	// Desc sorts OrderBy in descending order.
	Desc bool
	// Limit is the maximum number of returned documents. Zero means no limit.
	Limit int
}

// Filter matches documents whose top-level Field equals Value.
type Filter struct {
	Field string
	Value string
}

var (
	// ErrReadAfterWrite is returned by Tx.Get called after a write in the
	// same transaction.
	ErrReadAfterWrite = errors.New("store: read after write in transaction")
	// ErrInvalidPath is returned for malformed document paths.
	ErrInvalidPath = errors.New("store: invalid document path")
	// ErrInvalidQuery is returned for malformed queries.
	ErrInvalidQuery = errors.New("store: invalid query")
)

func validatePath(p string) error {
	segs := strings.Split(p, "/")
	if len(segs)%2 != 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return nil
}

func collectionOf(p string) string { return path.Dir(p) }

var fieldRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (q Query) validate() error {
	if q.Collection == "" || strings.Count(q.Collection, "/")%2 != 0 {
		return fmt.Errorf("%w: bad collection %q", ErrInvalidQuery, q.Collection)
	}
	for _, f := range q.Where {
		if !fieldRe.MatchString(f.Field) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidQuery, f.Field)
		}
	}
	if q.OrderBy != "" && !fieldRe.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: bad field %q", ErrInvalidQuery, q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}
