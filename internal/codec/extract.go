// Package codec maps between the Remote API's heterogeneous JSON value
// shapes and local table columns. Extraction flattens a record into
// column values; reconstruction reassembles the record shape from a row.
package codec

import (
	"encoding/json"
	"strconv"

	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/timeutil"
	"github.com/fieldstone/gridcache/internal/types"
)

// Extract produces the column→value map for one record. Null field
// values contribute no columns; unparseable timestamps become null;
// multi-valued and compound values carry a faithful _json dump next to
// their searchable scalar.
func Extract(catalog types.FieldCatalog, mapping schema.Mapping, record types.Record) map[string]any {
	out := map[string]any{}
	for _, f := range catalog {
		fc, ok := mapping.BySlug(f.Slug)
		if !ok {
			continue
		}
		raw, present := record[f.Slug]
		if !present || raw == nil {
			continue
		}
		extractField(f, fc, raw, out)
	}
	return out
}

func extractField(f types.Field, fc schema.FieldColumns, raw any, out map[string]any) {
	cols := fc.Columns
	switch f.FieldType {
	case types.FieldFirstCreated, types.FieldLastUpdated, types.FieldDeletedDate:
		on, by := onByParts(raw)
		out[cols[0].Name] = normalizeOrNil(on)
		out[cols[1].Name] = by

	case types.FieldDateRange:
		from, to := rangeParts(raw)
		out[cols[0].Name] = normalizeOrNil(from)
		out[cols[1].Name] = normalizeOrNil(to)

	case types.FieldDueDate:
		from, to := rangeParts(raw)
		out[cols[0].Name] = normalizeOrNil(from)
		out[cols[1].Name] = normalizeOrNil(to)
		m, _ := raw.(map[string]any)
		out[cols[2].Name] = boolToInt(m["is_overdue"])
		out[cols[3].Name] = boolToInt(m["status_is_completed"])

	case types.FieldStatus:
		switch v := raw.(type) {
		case map[string]any:
			out[cols[0].Name] = stringOrNil(v["value"])
			out[cols[1].Name] = normalizeOrNil(stringValue(v["updated_on"]))
		default:
			out[cols[0].Name] = stringOrNil(raw)
			out[cols[1].Name] = nil
		}

	case types.FieldAddress:
		out[cols[0].Name] = sysRoot(raw)
		out[cols[1].Name] = jsonDump(raw)

	case types.FieldFullName:
		out[cols[0].Name] = sysRoot(raw)
		out[cols[1].Name] = jsonDump(raw)

	case types.FieldSmartDoc:
		m, _ := raw.(map[string]any)
		out[cols[0].Name] = stringOrNil(m["preview"])
		out[cols[1].Name] = jsonDump(raw)

	case types.FieldChecklist:
		m, _ := raw.(map[string]any)
		out[cols[0].Name] = jsonDump(raw)
		out[cols[1].Name] = intOrNil(m["total_items"])
		out[cols[2].Name] = intOrNil(m["completed_items"])

	case types.FieldVote:
		m, _ := raw.(map[string]any)
		out[cols[0].Name] = intOrNil(m["total_votes"])
		out[cols[1].Name] = jsonDump(raw)

	case types.FieldTimeTracking:
		m, _ := raw.(map[string]any)
		out[cols[0].Name] = jsonDump(raw)
		out[cols[1].Name] = floatOrNil(m["total_duration"])

	case types.FieldYesNo:
		out[cols[0].Name] = boolToInt(raw)

	case types.FieldDate:
		out[cols[0].Name] = normalizeOrNil(dateString(raw))

	default:
		switch {
		case types.IsJSONArrayField(f.FieldType):
			out[cols[0].Name] = jsonDump(normalizeArray(raw))
		case types.IsNumericField(f.FieldType):
			if f.FieldType == types.FieldAutoNumber || f.FieldType == types.FieldCommentsCount {
				out[cols[0].Name] = intOrNil(raw)
			} else {
				out[cols[0].Name] = floatOrNil(raw)
			}
		case types.IsTextField(f.FieldType):
			out[cols[0].Name] = stringOrNil(raw)
		default:
			// unknown or formula-family: best effort
			out[cols[0].Name] = scalarOrJSON(raw)
		}
	}
}

// onByParts splits a {on, by} audit value.
func onByParts(raw any) (string, any) {
	switch v := raw.(type) {
	case map[string]any:
		return stringValue(v["on"]), v["by"]
	case string:
		return v, nil
	}
	return "", nil
}

// rangeParts pulls the from/to dates of a range value. Each side may be
// a bare string or a {date, include_time} wrapper.
func rangeParts(raw any) (string, string) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", ""
	}
	return dateString(m["from_date"]), dateString(m["to_date"])
}

// dateString unwraps a bare date string or a {date, include_time} hash.
func dateString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		return stringValue(v["date"])
	}
	return ""
}

func sysRoot(raw any) any {
	switch v := raw.(type) {
	case map[string]any:
		return stringOrNil(v["sys_root"])
	case string:
		return v
	}
	return nil
}

// normalizeOrNil stores a timestamp as UTC ISO-8601; empty or
// unparseable input stores null (degraded data, not an error).
func normalizeOrNil(s string) any {
	if s == "" {
		return nil
	}
	if _, ok := timeutil.Parse(s); !ok {
		return nil
	}
	return timeutil.Normalize(s)
}

func boolToInt(raw any) any {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		if v != 0 {
			return 1
		}
		return 0
	case nil:
		return nil
	}
	return nil
}

func stringValue(raw any) string {
	s, _ := raw.(string)
	return s
}

func stringOrNil(raw any) any {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return nil
	}
	return nil
}

func intOrNil(raw any) any {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return nil
}

func floatOrNil(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return nil
}

// normalizeArray coerces single values into one-element arrays so the
// stored shape is always a JSON array.
func normalizeArray(raw any) any {
	if _, ok := raw.([]any); ok {
		return raw
	}
	return []any{raw}
}

func jsonDump(raw any) any {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return string(data)
}

// scalarOrJSON stores scalars directly and everything else as JSON.
func scalarOrJSON(raw any) any {
	switch raw.(type) {
	case string, float64, bool, int, int64:
		return raw
	}
	return jsonDump(raw)
}
