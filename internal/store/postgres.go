// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of the [Store] interface.
//
// Transactions take a transaction-scoped advisory lock on every document
// path they touch, so concurrent read-modify-write cycles on the same
// document are serialized.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to the database and creates the schema if
// needed.
func OpenPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection);
	`); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

type pgQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func postgresGet(ctx context.Context, q pgQueryer, p string) ([]byte, error) {
	var data string
	err := q.QueryRow(ctx, `SELECT data::text FROM documents WHERE path = $1;`, p).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Get returns the document at path.
func (s *PostgresStore) Get(ctx context.Context, p string) ([]byte, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}
	return postgresGet(ctx, s.pool, p)
}

// RunTransaction runs fn in a PostgreSQL transaction.
func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(Tx) error) error {
	ptx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer ptx.Rollback(ctx)

	locked := make(map[string]bool)
	lock := func(ctx context.Context, p string) error {
		if locked[p] {
			return nil
		}
		if _, err := ptx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0));`, p); err != nil {
			return err
		}
		locked[p] = true
		return nil
	}

	t := &tx{read: func(ctx context.Context, p string) ([]byte, error) {
		if err := lock(ctx, p); err != nil {
			return nil, err
		}
		return postgresGet(ctx, ptx, p)
	}}
	if err := fn(t); err != nil {
		return err
	}
	changes, err := t.resolve(ctx)
	if err != nil {
		return err
	}

	for _, c := range changes {
		if err := lock(ctx, c.path); err != nil {
			return err
		}
		if c.data == nil {
			if _, err := ptx.Exec(ctx, `DELETE FROM documents WHERE path = $1;`, c.path); err != nil {
				return err
			}
			continue
		}
		if _, err := ptx.Exec(ctx, `
			INSERT INTO documents (path, collection, data, updated_at)
			VALUES ($1, $2, $3::jsonb, NOW())
			ON CONFLICT (path) DO UPDATE
			SET data = EXCLUDED.data, updated_at = NOW();
		`, c.path, collectionOf(c.path), string(c.data)); err != nil {
			return err
		}
	}
	return ptx.Commit(ctx)
}

// Query returns documents matching q.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	query, args, err := postgresDialect.buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
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

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
