package codec

import (
	"encoding/json"

	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/types"
)

// Reconstruct reassembles a Remote API record shape from a stored row.
// Every catalog field appears in the output, null values included, so
// callers can distinguish "absent from cache" from "cached as null".
func Reconstruct(catalog types.FieldCatalog, mapping schema.Mapping, row map[string]any) types.Record {
	rec := types.Record{}
	if id, ok := row["id"]; ok {
		rec["id"] = id
	}
	for _, f := range catalog {
		fc, ok := mapping.BySlug(f.Slug)
		if !ok {
			continue
		}
		rec[f.Slug] = reconstructField(f, fc, row)
	}
	return rec
}

func reconstructField(f types.Field, fc schema.FieldColumns, row map[string]any) any {
	cols := fc.Columns
	switch f.FieldType {
	case types.FieldFirstCreated, types.FieldLastUpdated, types.FieldDeletedDate:
		on := row[cols[0].Name]
		by := row[cols[1].Name]
		if on == nil && by == nil {
			return nil
		}
		return map[string]any{"on": on, "by": by}

	case types.FieldDateRange:
		from := row[cols[0].Name]
		to := row[cols[1].Name]
		if from == nil && to == nil {
			return nil
		}
		return map[string]any{"from_date": from, "to_date": to}

	case types.FieldDueDate:
		from := row[cols[0].Name]
		to := row[cols[1].Name]
		if from == nil && to == nil {
			return nil
		}
		return map[string]any{
			"from_date":           from,
			"to_date":             to,
			"is_overdue":          intToBool(row[cols[2].Name]),
			"status_is_completed": intToBool(row[cols[3].Name]),
		}

	case types.FieldStatus:
		value := row[cols[0].Name]
		updatedOn := row[cols[1].Name]
		if value == nil && updatedOn == nil {
			return nil
		}
		return map[string]any{"value": value, "updated_on": updatedOn}

	case types.FieldAddress, types.FieldFullName, types.FieldSmartDoc,
		types.FieldChecklist, types.FieldVote, types.FieldTimeTracking:
		return decodeJSONColumn(row[jsonColumn(fc)])

	case types.FieldYesNo:
		return intToBool(row[cols[0].Name])

	default:
		if types.IsJSONArrayField(f.FieldType) {
			return decodeJSONColumn(row[cols[0].Name])
		}
		return row[cols[0].Name]
	}
}

// jsonColumn finds the _json dump column of a compound field.
func jsonColumn(fc schema.FieldColumns) string {
	for _, c := range fc.Columns {
		if len(c.Name) > 5 && c.Name[len(c.Name)-5:] == "_json" {
			return c.Name
		}
	}
	return fc.Columns[0].Name
}

// decodeJSONColumn decodes a stored JSON dump. Unparseable content
// yields the raw string so degraded rows still surface their data.
func decodeJSONColumn(stored any) any {
	s, ok := stored.(string)
	if !ok {
		return stored
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func intToBool(stored any) any {
	switch v := stored.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case bool:
		return v
	case nil:
		return nil
	}
	return nil
}

// Sub-field names accepted in field references like "due_date.to_date".
const (
	SubFrom = "from_date"
	SubTo   = "to_date"
)

// ResolveColumn maps a field reference (slug, optionally with a
// .from_date/.to_date sub-field) to its physical comparison column.
// Range fields default to the _to column, matching the Remote API's
// filter-by-range-end behaviour.
func ResolveColumn(f types.Field, fc schema.FieldColumns, subField string) (string, bool) {
	cols := fc.Columns
	if types.IsRangeField(f.FieldType) {
		switch subField {
		case SubFrom:
			return cols[0].Name, true
		case "", SubTo:
			return cols[1].Name, true
		}
		return "", false
	}
	if subField != "" {
		return "", false
	}
	switch f.FieldType {
	case types.FieldFirstCreated, types.FieldLastUpdated, types.FieldDeletedDate:
		return cols[0].Name, true
	default:
		return cols[0].Name, true
	}
}
