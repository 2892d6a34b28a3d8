// Package schema turns a Remote API field catalog into local column
// definitions: SQL-safe names, SQLite types, and the index set.
package schema

import (
	"strings"

	"github.com/fieldstone/gridcache/internal/types"
	"github.com/fieldstone/gridcache/internal/utils"
)

// SQL column affinities used by the synthesiser.
const (
	TypeText    = "TEXT"
	TypeReal    = "REAL"
	TypeInteger = "INTEGER"
)

// Column is one physical column synthesised for a field.
type Column struct {
	Name    string `json:"name"`
	SQLType string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

// FieldColumns is the ordered column list for one field.
type FieldColumns struct {
	Slug    string   `json:"slug"`
	Base    string   `json:"base"`
	Columns []Column `json:"columns"`
}

// Mapping is the field→columns mapping for a whole table, in catalog
// order. It is serialised into the registry row and is the sole source
// of truth for the physical schema.
type Mapping []FieldColumns

// BySlug returns the FieldColumns for slug, if present.
func (m Mapping) BySlug(slug string) (FieldColumns, bool) {
	for _, fc := range m {
		if fc.Slug == slug {
			return fc, true
		}
	}
	return FieldColumns{}, false
}

// ColumnNames returns every physical column name in order.
func (m Mapping) ColumnNames() []string {
	var out []string
	for _, fc := range m {
		for _, c := range fc.Columns {
			out = append(out, c.Name)
		}
	}
	return out
}

// sqliteReserved is the set of reserved words a synthesised column name
// must never collide with. Matching is case-insensitive.
var sqliteReserved = map[string]bool{
	"abort": true, "action": true, "add": true, "after": true, "all": true,
	"alter": true, "and": true, "as": true, "asc": true, "attach": true,
	"autoincrement": true, "before": true, "begin": true, "between": true,
	"by": true, "cascade": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "commit": true, "conflict": true,
	"constraint": true, "create": true, "cross": true, "current": true,
	"current_date": true, "current_time": true, "current_timestamp": true,
	"database": true, "default": true, "deferrable": true, "deferred": true,
	"delete": true, "desc": true, "detach": true, "distinct": true,
	"drop": true, "each": true, "else": true, "end": true, "escape": true,
	"except": true, "exclusive": true, "exists": true, "explain": true,
	"fail": true, "for": true, "foreign": true, "from": true, "full": true,
	"glob": true, "group": true, "having": true, "if": true, "ignore": true,
	"immediate": true, "in": true, "index": true, "indexed": true,
	"initially": true, "inner": true, "insert": true, "instead": true,
	"intersect": true, "into": true, "is": true, "isnull": true,
	"join": true, "key": true, "left": true, "like": true, "limit": true,
	"match": true, "natural": true, "no": true, "not": true, "notnull": true,
	"null": true, "of": true, "offset": true, "on": true, "or": true,
	"order": true, "outer": true, "plan": true, "pragma": true,
	"primary": true, "query": true, "raise": true, "recursive": true,
	"references": true, "regexp": true, "reindex": true, "release": true,
	"rename": true, "replace": true, "restrict": true, "right": true,
	"rollback": true, "row": true, "savepoint": true, "select": true,
	"set": true, "table": true, "temp": true, "temporary": true,
	"then": true, "to": true, "transaction": true, "trigger": true,
	"union": true, "unique": true, "update": true, "using": true,
	"vacuum": true, "values": true, "view": true, "virtual": true,
	"when": true, "where": true, "with": true, "without": true,
}

// SanitizeColumnName produces a SQL-safe identifier: lower-case ASCII
// alphanumerics and underscores, never starting with a digit, never a
// reserved word. An input that sanitises to nothing becomes
// "field_column".
func SanitizeColumnName(s string) string {
	folded := utils.NormalizeString(s)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")

	if name == "" {
		name = "column"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "f_" + name
	}
	if sqliteReserved[name] {
		name = "field_" + name
	}
	return name
}

// baseName derives the column base for a field: label preferred, slug
// as fallback.
func baseName(f types.Field) string {
	if strings.TrimSpace(f.Label) != "" {
		return SanitizeColumnName(f.Label)
	}
	return SanitizeColumnName(f.Slug)
}

// alwaysIndexed field types. Their primary column(s) get an index at
// table creation.
var alwaysIndexed = map[types.FieldType]bool{
	types.FieldStatus:       true,
	types.FieldSingleSelect: true,
	types.FieldDate:         true,
	types.FieldDueDate:      true,
	types.FieldDateRange:    true,
	types.FieldCurrency:     true,
	types.FieldLastUpdated:  true,
	types.FieldAssignedTo:   true,
	types.FieldYesNo:        true,
}

func fieldIndexed(f types.Field) bool {
	if alwaysIndexed[f.FieldType] {
		return true
	}
	return f.Primary() || f.Slug == "title"
}

// columnsForBase produces the column definitions for a field given its
// (already deduplicated) base name.
func columnsForBase(f types.Field, base string) []Column {
	idx := fieldIndexed(f)

	switch f.FieldType {
	case types.FieldFirstCreated:
		return []Column{{Name: "created_on", SQLType: TypeText}, {Name: "created_by", SQLType: TypeText}}
	case types.FieldLastUpdated:
		return []Column{{Name: "updated_on", SQLType: TypeText, Indexed: idx}, {Name: "updated_by", SQLType: TypeText}}
	case types.FieldDeletedDate:
		return []Column{{Name: "deleted_on", SQLType: TypeText}, {Name: "deleted_by", SQLType: TypeText}}
	case types.FieldDateRange:
		return []Column{
			{Name: base + "_from", SQLType: TypeText, Indexed: idx},
			{Name: base + "_to", SQLType: TypeText, Indexed: idx},
		}
	case types.FieldDueDate:
		return []Column{
			{Name: base + "_from", SQLType: TypeText, Indexed: idx},
			{Name: base + "_to", SQLType: TypeText, Indexed: idx},
			{Name: base + "_is_overdue", SQLType: TypeInteger},
			{Name: base + "_is_completed", SQLType: TypeInteger},
		}
	case types.FieldStatus:
		return []Column{
			{Name: base, SQLType: TypeText, Indexed: idx},
			{Name: base + "_updated_on", SQLType: TypeText},
		}
	case types.FieldAddress:
		return []Column{
			{Name: base + "_text", SQLType: TypeText, Indexed: idx},
			{Name: base + "_json", SQLType: TypeText},
		}
	case types.FieldFullName:
		return []Column{
			{Name: base, SQLType: TypeText, Indexed: idx},
			{Name: base + "_json", SQLType: TypeText},
		}
	case types.FieldSmartDoc:
		return []Column{
			{Name: base + "_preview", SQLType: TypeText},
			{Name: base + "_json", SQLType: TypeText},
		}
	case types.FieldChecklist:
		return []Column{
			{Name: base + "_json", SQLType: TypeText},
			{Name: base + "_total", SQLType: TypeInteger},
			{Name: base + "_completed", SQLType: TypeInteger},
		}
	case types.FieldVote:
		return []Column{
			{Name: base + "_count", SQLType: TypeInteger, Indexed: idx},
			{Name: base + "_json", SQLType: TypeText},
		}
	case types.FieldTimeTracking:
		return []Column{
			{Name: base + "_json", SQLType: TypeText},
			{Name: base + "_total", SQLType: TypeReal},
		}
	}

	return []Column{{Name: base, SQLType: scalarSQLType(f.FieldType), Indexed: idx}}
}

func scalarSQLType(t types.FieldType) string {
	switch {
	case types.IsNumericField(t):
		if t == types.FieldAutoNumber || t == types.FieldCommentsCount {
			return TypeInteger
		}
		return TypeReal
	case t == types.FieldYesNo:
		return TypeInteger
	default:
		// text scalars, datefield (ISO-8601 text), JSON-array fields and
		// unknown types all land in TEXT
		return TypeText
	}
}

// reserved bookkeeping names a field column may never shadow.
var reservedColumns = map[string]bool{
	"id": true, "cached_at": true, "expires_at": true,
}

// BuildMapping synthesises the full field→columns mapping for a catalog,
// deduplicating name collisions with numeric suffixes (status, status_2,
// …). Deduplication happens at the base level so every sub-column of a
// compound field shifts together.
func BuildMapping(catalog types.FieldCatalog) Mapping {
	taken := map[string]bool{}
	for name := range reservedColumns {
		taken[name] = true
	}

	mapping := make(Mapping, 0, len(catalog))
	for _, f := range catalog {
		mapping = append(mapping, synthesize(f, taken))
	}
	return mapping
}

// synthesize produces the deduplicated FieldColumns for one field and
// marks its names as taken.
func synthesize(f types.Field, taken map[string]bool) FieldColumns {
	base := dedupeBase(f, baseName(f), taken)
	cols := columnsForBase(f, base)
	// Fixed-name compound types (created_on, updated_by, …) ignore the
	// base, so collisions there are resolved per column.
	for i := range cols {
		name := cols[i].Name
		for n := 2; taken[name]; n++ {
			name = cols[i].Name + "_" + itoa(n)
		}
		cols[i].Name = name
		taken[name] = true
	}
	return FieldColumns{Slug: f.Slug, Base: base, Columns: cols}
}

// ExtendMapping synthesises columns for fields added by schema
// evolution, respecting every name already present in existing.
func ExtendMapping(existing Mapping, added []types.Field) Mapping {
	taken := map[string]bool{}
	for name := range reservedColumns {
		taken[name] = true
	}
	for _, name := range existing.ColumnNames() {
		taken[name] = true
	}

	out := make(Mapping, 0, len(added))
	for _, f := range added {
		out = append(out, synthesize(f, taken))
	}
	return out
}

func dedupeBase(f types.Field, base string, taken map[string]bool) string {
	candidate := base
	for n := 2; collides(f, candidate, base, taken); n++ {
		candidate = base + "_" + itoa(n)
	}
	return candidate
}

func collides(f types.Field, candidate, base string, taken map[string]bool) bool {
	cols := columnsForBase(f, candidate)
	if candidate != base {
		// Base-independent column names cannot be fixed by suffixing the
		// base; synthesize resolves those per column instead.
		orig := columnsForBase(f, base)
		same := true
		for i := range cols {
			if cols[i].Name != orig[i].Name {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	for _, c := range cols {
		if taken[c.Name] {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	// small positive suffixes only
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}
