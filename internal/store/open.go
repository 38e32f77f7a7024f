// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"fmt"
	"strings"
)

// Open opens a store described by dsn:
//
//	mem:                      in-memory, lost on exit
//	file:<path>               JSON file
//	sqlite:<path>             SQLite database
//	postgres://... or postgresql://...
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "mem:":
		return NewMemStore(), nil
	case strings.HasPrefix(dsn, "file:"):
		return OpenFileStore(strings.TrimPrefix(dsn, "file:"))
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("store: unsupported DSN %q", dsn)
}
