package codec

import (
	"reflect"
	"testing"

	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/types"
)

func testCatalog() types.FieldCatalog {
	return types.FieldCatalog{
		{Slug: "title", Label: "Title", FieldType: types.FieldText},
		{Slug: "budget", Label: "Budget", FieldType: types.FieldNumber},
		{Slug: "approved", Label: "Approved", FieldType: types.FieldYesNo},
		{Slug: "when", Label: "When", FieldType: types.FieldDate},
		{Slug: "period", Label: "Period", FieldType: types.FieldDateRange},
		{Slug: "due", Label: "Due", FieldType: types.FieldDueDate},
		{Slug: "state", Label: "State", FieldType: types.FieldStatus},
		{Slug: "tags", Label: "Tags", FieldType: types.FieldTag},
		{Slug: "owners", Label: "Owners", FieldType: types.FieldAssignedTo},
		{Slug: "updated", Label: "Updated", FieldType: types.FieldLastUpdated},
	}
}

func TestExtractScalars(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	record := types.Record{
		"id":       "rec1",
		"title":    "Quarterly review",
		"budget":   float64(1500.5),
		"approved": true,
		"when":     "2024-03-15T12:00:00+02:00",
	}
	cols := Extract(catalog, mapping, record)

	if cols["title"] != "Quarterly review" {
		t.Errorf("title = %v", cols["title"])
	}
	if cols["budget"] != float64(1500.5) {
		t.Errorf("budget = %v", cols["budget"])
	}
	if cols["approved"] != 1 {
		t.Errorf("approved = %v", cols["approved"])
	}
	if cols["when"] != "2024-03-15T10:00:00Z" {
		t.Errorf("when = %v, want normalised UTC", cols["when"])
	}
}

func TestExtractAbsentAndNull(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	cols := Extract(catalog, mapping, types.Record{
		"id":    "rec1",
		"title": nil,
	})
	if _, ok := cols["title"]; ok {
		t.Error("null value should contribute no column")
	}
	if _, ok := cols["budget"]; ok {
		t.Error("absent value should contribute no column")
	}
}

func TestExtractUnparseableTimestamp(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	cols := Extract(catalog, mapping, types.Record{"when": "soon"})
	if v, ok := cols["when"]; !ok || v != nil {
		t.Errorf("unparseable timestamp should store null, got %v (present=%v)", v, ok)
	}
}

func TestExtractArrayCoercion(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	cols := Extract(catalog, mapping, types.Record{"tags": "solo"})
	if cols["tags"] != `["solo"]` {
		t.Errorf("scalar array value = %v, want one-element JSON array", cols["tags"])
	}

	cols = Extract(catalog, mapping, types.Record{"owners": []any{"u1", "u2"}})
	if cols["owners"] != `["u1","u2"]` {
		t.Errorf("owners = %v", cols["owners"])
	}
}

func TestRoundTrip(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	record := types.Record{
		"id":       "rec1",
		"title":    "Quarterly review",
		"budget":   float64(1500.5),
		"approved": false,
		"when":     "2024-03-15T10:00:00Z",
		"period": map[string]any{
			"from_date": "2024-03-01T00:00:00Z",
			"to_date":   "2024-03-31T00:00:00Z",
		},
		"due": map[string]any{
			"from_date":           "2024-03-10T00:00:00Z",
			"to_date":             "2024-03-20T00:00:00Z",
			"is_overdue":          true,
			"status_is_completed": false,
		},
		"state": map[string]any{
			"value":      "in_progress",
			"updated_on": "2024-03-14T09:00:00Z",
		},
		"tags":   []any{"finance", "q1"},
		"owners": []any{"u1"},
		"updated": map[string]any{
			"on": "2024-03-14T09:00:00Z",
			"by": "u2",
		},
	}

	row := Extract(catalog, mapping, record)
	row["id"] = "rec1"
	got := Reconstruct(catalog, mapping, row)

	if got["id"] != "rec1" {
		t.Errorf("id = %v", got["id"])
	}
	if got["title"] != "Quarterly review" {
		t.Errorf("title = %v", got["title"])
	}
	if got["approved"] != false {
		t.Errorf("approved = %v", got["approved"])
	}
	if !reflect.DeepEqual(got["period"], map[string]any{
		"from_date": "2024-03-01T00:00:00Z",
		"to_date":   "2024-03-31T00:00:00Z",
	}) {
		t.Errorf("period = %v", got["period"])
	}
	if !reflect.DeepEqual(got["due"], map[string]any{
		"from_date":           "2024-03-10T00:00:00Z",
		"to_date":             "2024-03-20T00:00:00Z",
		"is_overdue":          true,
		"status_is_completed": false,
	}) {
		t.Errorf("due = %v", got["due"])
	}
	if !reflect.DeepEqual(got["state"], map[string]any{
		"value":      "in_progress",
		"updated_on": "2024-03-14T09:00:00Z",
	}) {
		t.Errorf("state = %v", got["state"])
	}
	if !reflect.DeepEqual(got["tags"], []any{"finance", "q1"}) {
		t.Errorf("tags = %v", got["tags"])
	}
	if !reflect.DeepEqual(got["updated"], map[string]any{
		"on": "2024-03-14T09:00:00Z",
		"by": "u2",
	}) {
		t.Errorf("updated = %v", got["updated"])
	}
}

func TestReconstructEmitsEveryField(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	// An empty row still produces a key per catalog field.
	got := Reconstruct(catalog, mapping, map[string]any{"id": "rec1"})
	for _, f := range catalog {
		if _, ok := got[f.Slug]; !ok {
			t.Errorf("missing key for %s", f.Slug)
		}
		if got[f.Slug] != nil {
			t.Errorf("%s = %v, want nil", f.Slug, got[f.Slug])
		}
	}
}

func TestReconstructDegradedJSON(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)
	fc, _ := mapping.BySlug("tags")

	row := map[string]any{fc.Columns[0].Name: "{not json"}
	got := Reconstruct(catalog, mapping, row)
	if got["tags"] != "{not json" {
		t.Errorf("degraded JSON should surface raw, got %v", got["tags"])
	}
}

func TestResolveColumnRangeDefault(t *testing.T) {
	catalog := testCatalog()
	mapping := schema.BuildMapping(catalog)

	f, _ := catalog.BySlug("period")
	fc, _ := mapping.BySlug("period")

	col, ok := ResolveColumn(f, fc, "")
	if !ok || col != "period_to" {
		t.Errorf("unqualified range resolves to %q, want period_to", col)
	}
	col, ok = ResolveColumn(f, fc, SubFrom)
	if !ok || col != "period_from" {
		t.Errorf("from_date resolves to %q", col)
	}
	if _, ok := ResolveColumn(f, fc, "middle"); ok {
		t.Error("unknown sub-field should not resolve")
	}

	title, _ := catalog.BySlug("title")
	titleFC, _ := mapping.BySlug("title")
	if _, ok := ResolveColumn(title, titleFC, SubTo); ok {
		t.Error("sub-field on a non-range field should not resolve")
	}
}
