package query

import (
	"fmt"
	"strings"

	"github.com/fieldstone/gridcache/internal/types"
)

// Condition compiles one (field reference, value spec) pair into a SQL
// clause and its parameters. ok=false means the field is unknown and
// the clause should be skipped. A scalar spec means equality; a map
// spec selects an operator.
func (b *Builder) Condition(fieldRef string, spec any) (string, []any, bool, error) {
	col, f, ok := b.resolve(fieldRef)
	if !ok {
		return "", nil, false, nil
	}

	m, isMap := spec.(map[string]any)
	if !isMap {
		return quoteIdent(col) + " = ?", []any{spec}, true, nil
	}

	var clauses []string
	var params []any
	for op, val := range m {
		clause, p, err := b.operatorClause(col, f, op, val)
		if err != nil {
			return "", nil, false, err
		}
		clauses = append(clauses, clause)
		params = append(params, p...)
	}
	if len(clauses) == 0 {
		return "", nil, false, nil
	}
	return strings.Join(clauses, " AND "), params, true, nil
}

func (b *Builder) operatorClause(col string, f types.Field, op string, val any) (string, []any, error) {
	qc := quoteIdent(col)
	switch op {
	case "eq", types.OpIs, types.OpIsEqualTo:
		return qc + " = ?", []any{val}, nil
	case "ne", types.OpIsNot, types.OpIsNotEqualTo:
		return "(" + qc + " != ? OR " + qc + " IS NULL)", []any{val}, nil
	case "gt", types.OpIsGreaterThan:
		return qc + " > ?", []any{val}, nil
	case "gte", types.OpIsEqualOrGreater:
		return qc + " >= ?", []any{val}, nil
	case "lt", types.OpIsLessThan:
		return qc + " < ?", []any{val}, nil
	case "lte", types.OpIsEqualOrLess:
		return qc + " <= ?", []any{val}, nil

	case types.OpIsBefore:
		return qc + " < ?", []any{val}, nil
	case types.OpIsOnOrBefore:
		return qc + " <= ?", []any{val}, nil
	case types.OpIsOnOrAfter:
		return qc + " >= ?", []any{val}, nil

	case types.OpContains:
		return qc + " LIKE ? ESCAPE '\\'", []any{likePattern(val, true, true)}, nil
	case types.OpNotContains, types.OpDoesNotContain:
		return "(" + qc + " NOT LIKE ? ESCAPE '\\' OR " + qc + " IS NULL)", []any{likePattern(val, true, true)}, nil
	case "starts_with":
		return qc + " LIKE ? ESCAPE '\\'", []any{likePattern(val, false, true)}, nil
	case "ends_with":
		return qc + " LIKE ? ESCAPE '\\'", []any{likePattern(val, true, false)}, nil

	case "in", types.OpIsAnyOf:
		vals := valueList(val)
		if len(vals) == 0 {
			return "1 = 0", nil, nil
		}
		return qc + " IN (" + placeholders(len(vals)) + ")", vals, nil
	case "not_in", types.OpIsNoneOf:
		vals := valueList(val)
		if len(vals) == 0 {
			return "1 = 1", nil, nil
		}
		return "(" + qc + " NOT IN (" + placeholders(len(vals)) + ") OR " + qc + " IS NULL)", vals, nil

	case types.OpBetween, types.OpNotBetween:
		min, max, err := rangeBounds(val)
		if err != nil {
			return "", nil, err
		}
		if op == types.OpBetween {
			return qc + " BETWEEN ? AND ?", []any{min, max}, nil
		}
		return "(" + qc + " NOT BETWEEN ? AND ? OR " + qc + " IS NULL)", []any{min, max}, nil

	case "is_null":
		return qc + " IS NULL", nil, nil
	case "is_not_null":
		return qc + " IS NOT NULL", nil, nil

	case types.OpIsEmpty:
		if types.IsJSONArrayField(f.FieldType) {
			return "(" + qc + " IS NULL OR " + qc + " = '' OR " + qc + " = '[]')", nil, nil
		}
		return "(" + qc + " IS NULL OR " + qc + " = '')", nil, nil
	case types.OpIsNotEmpty:
		if types.IsJSONArrayField(f.FieldType) {
			return "(" + qc + " IS NOT NULL AND " + qc + " != '' AND " + qc + " != '[]')", nil, nil
		}
		return "(" + qc + " IS NOT NULL AND " + qc + " != '')", nil, nil

	case types.OpHasAnyOf, types.OpHasAllOf, types.OpIsExactly, types.OpHasNoneOf:
		return b.jsonSetClause(qc, op, val)

	case types.OpIsOverdue, types.OpIsNotOverdue:
		return b.overdueClause(f, op)

	case types.OpFileNameContains:
		return qc + " LIKE ? ESCAPE '\\'", []any{likePattern(val, true, true)}, nil
	case types.OpFileTypeIs:
		return "EXISTS (SELECT 1 FROM json_each(COALESCE(" + qc + ", '[]')) WHERE json_extract(json_each.value, '$.file_type') = ?)",
			[]any{val}, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %q", op)
}

// jsonSetClause implements the multi-select set operators over a
// JSON-encoded array stored in a text column, using json_each so all
// values stay parameterised.
func (b *Builder) jsonSetClause(qc, op string, val any) (string, []any, error) {
	vals := valueList(val)
	each := "json_each(COALESCE(" + qc + ", '[]'))"

	switch op {
	case types.OpHasAnyOf:
		if len(vals) == 0 {
			return "1 = 0", nil, nil
		}
		return "EXISTS (SELECT 1 FROM " + each + " WHERE json_each.value IN (" + placeholders(len(vals)) + "))",
			vals, nil

	case types.OpHasNoneOf:
		if len(vals) == 0 {
			return "1 = 1", nil, nil
		}
		return "NOT EXISTS (SELECT 1 FROM " + each + " WHERE json_each.value IN (" + placeholders(len(vals)) + "))",
			vals, nil

	case types.OpHasAllOf:
		if len(vals) == 0 {
			return "1 = 1", nil, nil
		}
		return "(SELECT COUNT(DISTINCT json_each.value) FROM " + each +
				" WHERE json_each.value IN (" + placeholders(len(vals)) + ")) = ?",
			append(vals, len(dedupe(vals))), nil

	case types.OpIsExactly:
		// set equality, order-insensitive; empty argument matches empty
		// stored arrays
		distinct := dedupe(vals)
		if len(distinct) == 0 {
			return "(SELECT COUNT(*) FROM " + each + ") = 0", nil, nil
		}
		return "((SELECT COUNT(DISTINCT json_each.value) FROM " + each +
				" WHERE json_each.value IN (" + placeholders(len(distinct)) + ")) = ?" +
				" AND (SELECT COUNT(DISTINCT json_each.value) FROM " + each + ") = ?)",
			append(append([]any{}, distinct...), len(distinct), len(distinct)), nil
	}
	return "", nil, fmt.Errorf("unsupported set operator %q", op)
}

// overdueClause targets the duedatefield's _is_overdue flag column.
func (b *Builder) overdueClause(f types.Field, op string) (string, []any, error) {
	fc, ok := b.mapping.BySlug(f.Slug)
	if !ok || f.FieldType != types.FieldDueDate || len(fc.Columns) < 4 {
		return "", nil, fmt.Errorf("%s requires a duedatefield, got %s", op, f.FieldType)
	}
	flag := quoteIdent(fc.Columns[2].Name)
	if op == types.OpIsOverdue {
		return flag + " = 1", nil, nil
	}
	return "(" + flag + " = 0 OR " + flag + " IS NULL)", nil, nil
}

func likePattern(val any, prefix, suffix bool) string {
	s := fmt.Sprintf("%v", val)
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	if prefix {
		s = "%" + s
	}
	if suffix {
		s += "%"
	}
	return s
}

func valueList(val any) []any {
	switch v := val.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return nil
	}
	return []any{val}
}

func dedupe(vals []any) []any {
	seen := map[string]bool{}
	var out []any
	for _, v := range vals {
		k := fmt.Sprintf("%v", v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func rangeBounds(val any) (any, any, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("between requires a {min, max} value")
	}
	return m["min"], m["max"], nil
}
