// Package query builds parameterised SQL against a cached record table.
// Conditions come in as the Remote API's comparison shapes; everything
// caller-supplied binds as a SQL parameter, never as SQL text.
package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/fieldstone/gridcache/internal/codec"
	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/types"
)

// Querier is the subset of *sql.DB the builder needs.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Builder accumulates WHERE/ORDER/LIMIT/OFFSET clauses for one local
// table. Multiple Where calls AND together; nested OR groups arrive
// through WhereRaw.
type Builder struct {
	db      Querier
	table   string
	catalog types.FieldCatalog
	mapping schema.Mapping

	conds   []string
	params  []any
	orderBy []string
	limit   int
	offset  int
	err     error
}

// New returns a builder bound to a local table.
func New(db Querier, table string, catalog types.FieldCatalog, mapping schema.Mapping) *Builder {
	return &Builder{db: db, table: table, catalog: catalog, mapping: mapping, limit: -1, offset: -1}
}

// Where adds one condition per map entry. Unknown field slugs are
// skipped so stale saved filters degrade gracefully.
func (b *Builder) Where(conditions map[string]any) *Builder {
	for fieldRef, spec := range conditions {
		clause, params, ok, err := b.Condition(fieldRef, spec)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			continue
		}
		if !ok {
			continue
		}
		b.conds = append(b.conds, clause)
		b.params = append(b.params, params...)
	}
	return b
}

// WhereRaw adds a pre-built parenthesised clause with its parameters.
// Used by the filter translator for nested boolean groups; the clause
// text comes from Condition, never from caller input.
func (b *Builder) WhereRaw(clause string, params ...any) *Builder {
	if strings.TrimSpace(clause) == "" {
		return b
	}
	b.conds = append(b.conds, "("+clause+")")
	b.params = append(b.params, params...)
	return b
}

// OrderBy appends a sort key. Unknown fields are skipped; direction is
// constrained to ASC/DESC.
func (b *Builder) OrderBy(fieldRef, direction string) *Builder {
	col, _, ok := b.resolve(fieldRef)
	if !ok {
		return b
	}
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	b.orderBy = append(b.orderBy, quoteIdent(col)+" "+dir)
	return b
}

// Limit caps the result set.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Count executes SELECT COUNT(*) under the accumulated conditions.
func (b *Builder) Count() (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	q := "SELECT COUNT(*) FROM " + quoteIdent(b.table) + b.whereClause()
	var n int64
	if err := b.db.QueryRow(q, b.params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count on %s: %w", b.table, err)
	}
	return n, nil
}

// Execute runs the query and returns the raw rows, column-keyed.
func (b *Builder) Execute() ([]map[string]any, error) {
	if b.err != nil {
		return nil, b.err
	}
	q := "SELECT * FROM " + quoteIdent(b.table) + b.whereClause()
	params := append([]any{}, b.params...)
	if len(b.orderBy) > 0 {
		q += " ORDER BY " + strings.Join(b.orderBy, ", ")
	}
	if b.limit >= 0 {
		q += " LIMIT ?"
		params = append(params, b.limit)
	}
	if b.offset >= 0 {
		if b.limit < 0 {
			// SQLite requires LIMIT before OFFSET
			q += " LIMIT -1"
		}
		q += " OFFSET ?"
		params = append(params, b.offset)
	}

	rows, err := b.db.Query(q, params...)
	if err != nil {
		return nil, fmt.Errorf("query on %s: %w", b.table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// SQL returns the SELECT statement and parameters that Execute would
// run. Used by tests to assert parameterisation.
func (b *Builder) SQL() (string, []any) {
	q := "SELECT * FROM " + quoteIdent(b.table) + b.whereClause()
	return q, append([]any{}, b.params...)
}

func (b *Builder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// resolve maps a field reference ("status", "due_date.from_date", "id")
// to its physical column and field descriptor.
func (b *Builder) resolve(fieldRef string) (string, types.Field, bool) {
	slug := fieldRef
	subField := ""
	if i := strings.IndexByte(fieldRef, '.'); i >= 0 {
		slug, subField = fieldRef[:i], fieldRef[i+1:]
	}

	if slug == "id" && subField == "" {
		return "id", types.Field{Slug: "id", FieldType: types.FieldRecordID}, true
	}

	f, ok := b.catalog.BySlug(slug)
	if !ok {
		return "", types.Field{}, false
	}
	fc, ok := b.mapping.BySlug(slug)
	if !ok {
		return "", types.Field{}, false
	}
	col, ok := codec.ResolveColumn(f, fc, subField)
	if !ok {
		return "", types.Field{}, false
	}
	return col, f, true
}

// quoteIdent wraps an identifier in double quotes. Identifiers only
// ever come from the sanitised mapping, never from callers.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
