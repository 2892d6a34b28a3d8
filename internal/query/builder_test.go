package query

import (
	"strings"
	"testing"

	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/types"
)

func testBuilder() *Builder {
	catalog := types.FieldCatalog{
		{Slug: "title", Label: "Title", FieldType: types.FieldText},
		{Slug: "budget", Label: "Budget", FieldType: types.FieldNumber},
		{Slug: "status", Label: "Status", FieldType: types.FieldSingleSelect},
		{Slug: "owners", Label: "Owners", FieldType: types.FieldAssignedTo},
		{Slug: "period", Label: "Period", FieldType: types.FieldDateRange},
		{Slug: "due", Label: "Due", FieldType: types.FieldDueDate},
		{Slug: "when", Label: "When", FieldType: types.FieldDate},
		{Slug: "files", Label: "Files", FieldType: types.FieldFiles},
	}
	mapping := schema.BuildMapping(catalog)
	return New(nil, "cache_records_projects_p1", catalog, mapping)
}

func TestWhereScalarEquality(t *testing.T) {
	b := testBuilder().Where(map[string]any{"title": "Roadmap"})
	sql, params := b.SQL()
	if !strings.Contains(sql, `"title" = ?`) {
		t.Errorf("sql = %s", sql)
	}
	if len(params) != 1 || params[0] != "Roadmap" {
		t.Errorf("params = %v", params)
	}
}

func TestWhereSkipsUnknownField(t *testing.T) {
	b := testBuilder().Where(map[string]any{"ghost": "x"})
	sql, params := b.SQL()
	if strings.Contains(sql, "WHERE") || len(params) != 0 {
		t.Errorf("unknown field produced a clause: %s %v", sql, params)
	}
}

func TestParameterisation(t *testing.T) {
	hostile := `"; DROP TABLE cache_records_projects_p1; --`
	b := testBuilder().Where(map[string]any{
		"title":  hostile,
		"status": map[string]any{"is_any_of": []any{hostile, "ok"}},
		"owners": map[string]any{"has_any_of": []any{hostile}},
	})
	sql, params := b.SQL()
	if strings.Contains(sql, "DROP TABLE") {
		t.Fatalf("caller value leaked into SQL text: %s", sql)
	}
	found := false
	for _, p := range params {
		if p == hostile {
			found = true
		}
	}
	if !found {
		t.Error("hostile value should bind as a parameter")
	}
}

func TestRangeFieldDefaultsToEnd(t *testing.T) {
	b := testBuilder().Where(map[string]any{
		"period": map[string]any{"is_on_or_before": "2024-03-31T23:59:59Z"},
	})
	sql, _ := b.SQL()
	if !strings.Contains(sql, `"period_to" <= ?`) {
		t.Errorf("unqualified range filter should target the _to column: %s", sql)
	}

	b = testBuilder().Where(map[string]any{
		"period.from_date": map[string]any{"is_on_or_after": "2024-03-01T00:00:00Z"},
	})
	sql, _ = b.SQL()
	if !strings.Contains(sql, `"period_from" >= ?`) {
		t.Errorf("from_date sub-field should target the _from column: %s", sql)
	}
}

func TestEmptyArraySemantics(t *testing.T) {
	// is_any_of [] matches nothing
	sql, params := testBuilder().Where(map[string]any{
		"status": map[string]any{"is_any_of": []any{}},
	}).SQL()
	if !strings.Contains(sql, "1 = 0") || len(params) != 0 {
		t.Errorf("is_any_of [] = %s %v", sql, params)
	}

	// is_none_of [] matches everything
	sql, _ = testBuilder().Where(map[string]any{
		"status": map[string]any{"is_none_of": []any{}},
	}).SQL()
	if !strings.Contains(sql, "1 = 1") {
		t.Errorf("is_none_of [] = %s", sql)
	}

	// has_any_of [] matches nothing
	sql, _ = testBuilder().Where(map[string]any{
		"owners": map[string]any{"has_any_of": []any{}},
	}).SQL()
	if !strings.Contains(sql, "1 = 0") {
		t.Errorf("has_any_of [] = %s", sql)
	}
}

func TestIsEmptyOnJSONArrayColumn(t *testing.T) {
	sql, _ := testBuilder().Where(map[string]any{
		"owners": map[string]any{"is_empty": true},
	}).SQL()
	for _, want := range []string{`"owners" IS NULL`, `"owners" = ''`, `"owners" = '[]'`} {
		if !strings.Contains(sql, want) {
			t.Errorf("is_empty missing %s: %s", want, sql)
		}
	}

	sql, _ = testBuilder().Where(map[string]any{
		"owners": map[string]any{"is_not_empty": true},
	}).SQL()
	for _, want := range []string{`IS NOT NULL`, `!= ''`, `!= '[]'`} {
		if !strings.Contains(sql, want) {
			t.Errorf("is_not_empty missing %s: %s", want, sql)
		}
	}
}

func TestJSONSetOperators(t *testing.T) {
	sql, params := testBuilder().Where(map[string]any{
		"owners": map[string]any{"has_all_of": []any{"u1", "u2"}},
	}).SQL()
	if !strings.Contains(sql, "COUNT(DISTINCT json_each.value)") {
		t.Errorf("has_all_of = %s", sql)
	}
	// two values plus the distinct count bound
	if len(params) != 3 || params[2] != 2 {
		t.Errorf("has_all_of params = %v", params)
	}

	sql, _ = testBuilder().Where(map[string]any{
		"owners": map[string]any{"has_none_of": []any{"u1"}},
	}).SQL()
	if !strings.Contains(sql, "NOT EXISTS") {
		t.Errorf("has_none_of = %s", sql)
	}

	sql, params = testBuilder().Where(map[string]any{
		"owners": map[string]any{"is_exactly": []any{}},
	}).SQL()
	if !strings.Contains(sql, "COUNT(*)") || len(params) != 0 {
		t.Errorf("is_exactly [] = %s %v", sql, params)
	}
}

func TestOverdueOperators(t *testing.T) {
	sql, _ := testBuilder().Where(map[string]any{
		"due": map[string]any{"is_overdue": true},
	}).SQL()
	if !strings.Contains(sql, `"due_is_overdue" = 1`) {
		t.Errorf("is_overdue = %s", sql)
	}

	sql, _ = testBuilder().Where(map[string]any{
		"due": map[string]any{"is_not_overdue": true},
	}).SQL()
	if !strings.Contains(sql, `"due_is_overdue" = 0`) || !strings.Contains(sql, "IS NULL") {
		t.Errorf("is_not_overdue should include NULL rows: %s", sql)
	}
}

func TestLikeEscaping(t *testing.T) {
	sql, params := testBuilder().Where(map[string]any{
		"title": map[string]any{"contains": "50%_done"},
	}).SQL()
	if !strings.Contains(sql, `ESCAPE '\'`) {
		t.Errorf("LIKE without escape clause: %s", sql)
	}
	if params[0] != `%50\%\_done%` {
		t.Errorf("pattern = %v", params[0])
	}
}

func TestIDIsFirstClass(t *testing.T) {
	sql, params := testBuilder().Where(map[string]any{"id": "rec42"}).SQL()
	if !strings.Contains(sql, `"id" = ?`) || params[0] != "rec42" {
		t.Errorf("id filter = %s %v", sql, params)
	}
}

func TestOrderByWhitelistsDirection(t *testing.T) {
	b := testBuilder().OrderBy("budget", "desc; DROP TABLE x")
	q := "SELECT * FROM t"
	if len(b.orderBy) != 1 {
		t.Fatalf("orderBy = %v", b.orderBy)
	}
	if b.orderBy[0] != `"budget" ASC` {
		t.Errorf("hostile direction should fall back to ASC: %v %s", b.orderBy, q)
	}

	b = testBuilder().OrderBy("budget", "DESC")
	if b.orderBy[0] != `"budget" DESC` {
		t.Errorf("orderBy = %v", b.orderBy)
	}
}

func TestOrderBySkipsUnknownField(t *testing.T) {
	b := testBuilder().OrderBy("ghost", "asc")
	if len(b.orderBy) != 0 {
		t.Errorf("unknown sort field produced a clause: %v", b.orderBy)
	}
}

func TestUnsupportedOperatorErrors(t *testing.T) {
	b := testBuilder().Where(map[string]any{
		"title": map[string]any{"sounds_like": "x"},
	})
	if _, err := b.Count(); err == nil {
		t.Error("unsupported operator should surface an error")
	}
}
