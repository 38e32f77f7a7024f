// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.astrophena.name/megazu/internal/atomicio"
	"go.astrophena.name/megazu/internal/filelock"
)

const fileBackups = 10

// FileStore is a [Store] persisted to a single JSON file mapping document
// paths to documents. Every committed transaction rewrites the file
// atomically, keeping a few backups of previous versions.
//
// Only one process may have the file open: OpenFileStore takes an exclusive
// lock on "<path>.lock" that is held until Close.
type FileStore struct {
	*MemStore
	path string
	lock *filelock.Lock
}

// ErrStoreInUse is returned by [OpenFileStore] when another process holds
// the store open.
var ErrStoreInUse = errors.New("store: file is in use by another process")

// OpenFileStore loads the store from path, creating an empty one if the file
// does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	lock, err := filelock.Acquire(path)
	if errors.Is(err, filelock.ErrLocked) {
		return nil, fmt.Errorf("%w: %w", ErrStoreInUse, err)
	}
	if err != nil {
		return nil, fmt.Errorf("store: locking %s: %w", path, err)
	}

	s := &FileStore{MemStore: NewMemStore(), path: path, lock: lock}
	if err := s.load(); err != nil {
		return nil, errors.Join(err, lock.Release())
	}
	s.persist = s.save
	return s, nil
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(b, &docs); err != nil {
		return fmt.Errorf("store: decoding %s: %w", s.path, err)
	}
	for p, d := range docs {
		if err := validatePath(p); err != nil {
			return fmt.Errorf("store: loading %s: %w", s.path, err)
		}
		s.docs[p] = []byte(d)
	}
	return nil
}

// Close releases the lock on the store file. Committed transactions are
// already on disk.
func (s *FileStore) Close() error {
	return s.lock.Release()
}

func (s *FileStore) save(docs map[string][]byte) error {
	raw := make(map[string]json.RawMessage, len(docs))
	for p, d := range docs {
		raw[p] = d
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return atomicio.WriteFile(s.path, append(b, '\n'), 0o600, fileBackups)
}
