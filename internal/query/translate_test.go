package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/fieldstone/gridcache/internal/filter"
	"github.com/fieldstone/gridcache/internal/types"
)

func TestApplyFilterFlatAnd(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "title", Comparison: "contains", Value: "plan"},
			{Field: "budget", Comparison: "is_greater_than", Value: float64(1000)},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, params := b.SQL()
	if !strings.Contains(sql, `"title" LIKE ?`) || !strings.Contains(sql, `"budget" > ?`) {
		t.Errorf("sql = %s", sql)
	}
	if len(params) != 2 {
		t.Errorf("params = %v", params)
	}
}

func TestApplyFilterNestedGroups(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "status", Comparison: "is", Value: "open"},
			{
				Operator: "or",
				Fields: []types.FilterNode{
					{Field: "budget", Comparison: "is_greater_than", Value: float64(5000)},
					{Field: "owners", Comparison: "has_any_of", Value: []any{"u1"}},
				},
			},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, params := b.SQL()

	if !strings.Contains(sql, " OR ") {
		t.Errorf("nested or group missing: %s", sql)
	}
	// The or-group must be parenthesised so it binds tighter than the AND.
	if !strings.Contains(sql, `("budget" > ? OR `) {
		t.Errorf("or group not parenthesised: %s", sql)
	}
	if len(params) != 3 {
		t.Errorf("params = %v", params)
	}
}

func TestApplyFilterDateOnlyEquality(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "when", Comparison: "is", Value: "2024-03-15"},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, params := b.SQL()
	if !strings.Contains(sql, "BETWEEN ? AND ?") {
		t.Errorf("date-only equality should expand to a day range: %s", sql)
	}
	if len(params) != 2 || params[0] != "2024-03-15T00:00:00Z" || params[1] != "2024-03-15T23:59:59Z" {
		t.Errorf("params = %v", params)
	}
}

func TestApplyFilterDateObjectValue(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "when", Comparison: "is_before", Value: map[string]any{
				"date_mode":       "exact_date",
				"date_mode_value": "2024-03-15T12:00:00+02:00",
			}},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, params := b.SQL()
	// The label "When" is a reserved word and sanitises to field_when.
	if !strings.Contains(sql, `"field_when" < ?`) {
		t.Errorf("sql = %s", sql)
	}
	if len(params) != 1 || params[0] != "2024-03-15T10:00:00Z" {
		t.Errorf("nested date should normalise to UTC: %v", params)
	}
}

func TestApplyFilterSkipsUnknownField(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "ghost", Comparison: "is", Value: "x"},
			{Field: "title", Comparison: "is", Value: "keep"},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, params := b.SQL()
	if len(params) != 1 || !strings.Contains(sql, `"title" = ?`) {
		t.Errorf("unknown field should be skipped: %s %v", sql, params)
	}
}

func TestApplyFilterValidation(t *testing.T) {
	// non-strict: illegal combination is skipped
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "owners", Comparison: "is", Value: "u1"},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if sql, _ := b.SQL(); strings.Contains(sql, "WHERE") {
		t.Errorf("illegal clause should be skipped in non-strict mode: %s", sql)
	}

	// strict: it is a ValidationError with a suggestion
	b = testBuilder()
	err = b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "owners", Comparison: "is", Value: "u1"},
		},
	}, true)
	var verr *filter.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Suggestion != types.OpHasAnyOf {
		t.Errorf("suggestion = %q", verr.Suggestion)
	}
}

func TestApplyFilterDefaultComparison(t *testing.T) {
	b := testBuilder()
	err := b.ApplyFilter(&types.Filter{
		Operator: "and",
		Fields: []types.FilterNode{
			{Field: "title", Value: "Roadmap"},
		},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	sql, _ := b.SQL()
	if !strings.Contains(sql, `"title" = ?`) {
		t.Errorf("missing comparison should default to equality: %s", sql)
	}
}

func TestApplySort(t *testing.T) {
	b := testBuilder().ApplySort([]types.Sort{
		{Field: "budget", Direction: "desc"},
		{Field: "ghost", Direction: "asc"},
		{Field: "title", Direction: "asc"},
	})
	if len(b.orderBy) != 2 {
		t.Fatalf("orderBy = %v", b.orderBy)
	}
	if b.orderBy[0] != `"budget" DESC` || b.orderBy[1] != `"title" ASC` {
		t.Errorf("orderBy = %v", b.orderBy)
	}
}
