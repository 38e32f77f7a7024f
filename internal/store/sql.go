// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	sq "github.com/Masterminds/squirrel"
)

// dialect describes how a SQL backend reaches into stored JSON.
type dialect struct {
	placeholder sq.PlaceholderFormat
	// textField is an expression yielding a top-level field as text. It
	// takes the field name as its only argument.
	textField string
	// numField is like textField, but yields a number, zero when missing.
	numField string
	// fieldArg converts a field name to the argument of textField and numField.
	fieldArg func(field string) any
	// dataColumn selects the document as text.
	dataColumn string
}

var (
	sqliteDialect = dialect{
		placeholder: sq.Question,
		textField:   "json_extract(data, ?)",
		numField:    "COALESCE(CAST(json_extract(data, ?) AS REAL), 0)",
		fieldArg:    func(field string) any { return "$." + field },
		dataColumn:  "data",
	}
	postgresDialect = dialect{
		placeholder: sq.Dollar,
		textField:   "(data->>(?::text))",
		numField:    "COALESCE((data->>(?::text))::numeric, 0)",
		fieldArg:    func(field string) any { return field },
		dataColumn:  "data::text",
	}
)

// buildQuery renders q as a SELECT returning (path, data) rows.
func (d dialect) buildQuery(q Query) (string, []any, error) {
	b := sq.StatementBuilder.PlaceholderFormat(d.placeholder).
		Select("path", d.dataColumn).
		From("documents").
		Where(sq.Eq{"collection": q.Collection})

	for _, f := range q.Where {
		b = b.Where(sq.Expr(d.textField+" = ?", d.fieldArg(f.Field), f.Value))
	}
	if q.OrderBy != "" {
		dir := " ASC"
		if q.Desc {
			dir = " DESC"
		}
		b = b.OrderByClause(d.numField+dir, d.fieldArg(q.OrderBy))
	}
	b = b.OrderBy("path ASC")
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b.ToSql()
}
