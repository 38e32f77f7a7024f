// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of the [Store] interface.
//
// The database is used through a single connection, so transactions are
// serialized within the process.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the SQLite database at path, creating the schema if
// needed.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection);",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLiteStore{db: db}, nil
}

type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteGet(ctx context.Context, q sqlQueryer, p string) ([]byte, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?;`, p).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Get returns the document at path.
func (s *SQLiteStore) Get(ctx context.Context, p string) ([]byte, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}
	return sqliteGet(ctx, s.db, p)
}

// RunTransaction runs fn in a SQLite transaction.
func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(Tx) error) error {
	stx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer stx.Rollback()

	t := &tx{read: func(ctx context.Context, p string) ([]byte, error) {
		return sqliteGet(ctx, stx, p)
	}}
	if err := fn(t); err != nil {
		return err
	}
	changes, err := t.resolve(ctx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, c := range changes {
		if c.data == nil {
			if _, err := stx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?;`, c.path); err != nil {
				return err
			}
			continue
		}
		if _, err := stx.ExecContext(ctx, `
			INSERT INTO documents (path, collection, data, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (path) DO UPDATE
			SET data = excluded.data, updated_at = excluded.updated_at;
		`, c.path, collectionOf(c.path), string(c.data), now); err != nil {
			return err
		}
	}
	return stx.Commit()
}

// Query returns documents matching q.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	query, args, err := sqliteDialect.buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			p    string
			data string
		)
		if err := rows.Scan(&p, &data); err != nil {
			return nil, err
		}
		docs = append(docs, Document{Path: p, Data: []byte(data)})
	}
	return docs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
