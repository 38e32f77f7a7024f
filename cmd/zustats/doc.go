// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Zustats prints usage statistics of megazu groups.

It reads the members of the given groups from the document store and
reports how many groups and users are active, activity totals per kind,
roast totals with the top roasters, and a monthly breakdown.

# Usage

	$ zustats [flags...] -- <group ID>...

Group IDs of Telegram groups are negative, so separate them from flags
with "--".

The store is selected with -store or the STORE environment variable, using
the same syntax as megazu. Pass -format yaml to get machine readable output
that also includes the daily breakdown.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/megazu/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
