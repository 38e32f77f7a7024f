// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package atomicio

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.astrophena.name/megazu/internal/testutil"
)

func TestWriteFile(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "store.json")

	if err := WriteFile(name, []byte("v0"), 0o600, 2); err != nil {
		t.Fatal(err)
	}
	backups, err := Backups(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(backups), 0)

	for i := 1; i <= 4; i++ {
		if err := WriteFile(name, []byte("v"+strconv.Itoa(i)), 0o600, 2); err != nil {
			t.Fatal(err)
		}
	}

	got, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(got), "v4")

	backups, err = Backups(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(backups), 2)
	newest, err := os.ReadFile(backups[1])
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(newest), "v3")

	fi, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, fi.Mode().Perm(), os.FileMode(0o600))
}

func TestWriteFileNoBackups(t *testing.T) {
	t.Parallel()

	name := filepath.Join(t.TempDir(), "store.json")
	for range 3 {
		if err := WriteFile(name, []byte("x"), 0o644, 0); err != nil {
			t.Fatal(err)
		}
	}
	backups, err := Backups(name)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(backups), 0)

	tmps, _ := filepath.Glob(filepath.Join(filepath.Dir(name), ".store.json.tmp*"))
	testutil.AssertEqual(t, len(tmps), 0)
}
