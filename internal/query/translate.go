package query

import (
	"fmt"
	"strings"

	"github.com/fieldstone/gridcache/internal/filter"
	"github.com/fieldstone/gridcache/internal/timeutil"
	"github.com/fieldstone/gridcache/internal/types"
)

// ApplyFilter translates a Remote API filter document into builder
// conditions. A flat all-leaf AND group becomes a chain of Where calls;
// anything with OR semantics or nested groups becomes one parenthesised
// WhereRaw fragment. In strict mode an illegal (field type, operator)
// combination returns a ValidationError; otherwise the clause is
// skipped.
func (b *Builder) ApplyFilter(f *types.Filter, strict bool) error {
	if f == nil || len(f.Fields) == 0 {
		return b.err
	}

	flatAnd := !strings.EqualFold(f.Operator, "or")
	for _, n := range f.Fields {
		if n.IsGroup() {
			flatAnd = false
			break
		}
	}

	if flatAnd {
		for _, leaf := range f.Fields {
			spec, ok, err := b.translateLeaf(leaf, strict)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			b.Where(map[string]any{spec.fieldRef: spec.cond})
		}
		return b.err
	}

	clause, params, err := b.compileGroup(f.Operator, f.Fields, strict)
	if err != nil {
		return err
	}
	if clause != "" {
		b.WhereRaw(clause, params...)
	}
	return b.err
}

// compileGroup renders a boolean group as a SQL fragment, nested groups
// recursively wrapped in parentheses.
func (b *Builder) compileGroup(operator string, nodes []types.FilterNode, strict bool) (string, []any, error) {
	joiner := " AND "
	if strings.EqualFold(operator, "or") {
		joiner = " OR "
	}

	var parts []string
	var params []any
	for _, n := range nodes {
		if n.IsGroup() {
			clause, p, err := b.compileGroup(n.Operator, n.Fields, strict)
			if err != nil {
				return "", nil, err
			}
			if clause == "" {
				continue
			}
			parts = append(parts, "("+clause+")")
			params = append(params, p...)
			continue
		}

		spec, ok, err := b.translateLeaf(n, strict)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			continue
		}
		clause, p, ok, err := b.Condition(spec.fieldRef, spec.cond)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			continue
		}
		parts = append(parts, clause)
		params = append(params, p...)
	}
	return strings.Join(parts, joiner), params, nil
}

// leafSpec is a translated leaf: the field reference and the condition
// shape to hand to the builder.
type leafSpec struct {
	fieldRef string
	cond     any
}

// translateLeaf maps one DSL leaf onto a builder condition. ok=false
// means the clause is skipped (unknown field, failed non-strict
// validation).
func (b *Builder) translateLeaf(leaf types.FilterNode, strict bool) (leafSpec, bool, error) {
	if leaf.Field == "" {
		return leafSpec{}, false, nil
	}

	_, f, known := b.resolve(leaf.Field)
	if !known {
		// unknown slug: skip so stale saved filters degrade gracefully
		return leafSpec{}, false, nil
	}

	comparison := leaf.Comparison
	if comparison == "" {
		comparison = types.OpIs
	}

	if res := filter.Validate(f.FieldType, comparison); res.Known && !res.OK {
		if strict {
			return leafSpec{}, false, &filter.ValidationError{
				Field:      leaf.Field,
				FieldType:  f.FieldType,
				Operator:   comparison,
				Suggestion: res.Suggestion,
			}
		}
		return leafSpec{}, false, nil
	}

	cond, err := translateComparison(f, comparison, leaf.Value)
	if err != nil {
		return leafSpec{}, false, err
	}
	return leafSpec{fieldRef: leaf.Field, cond: cond}, true, nil
}

func translateComparison(f types.Field, comparison string, value any) (any, error) {
	switch comparison {
	case types.OpIs, types.OpIsEqualTo, types.OpIsNot, types.OpIsNotEqualTo:
		// equality on a date-only value spans the whole UTC day
		if s, ok := value.(string); ok && types.IsDateLikeField(f.FieldType) && timeutil.IsDateOnly(s) {
			min, max, ok := timeutil.DayBounds(s)
			if !ok {
				break
			}
			op := types.OpBetween
			if comparison == types.OpIsNot || comparison == types.OpIsNotEqualTo {
				op = types.OpNotBetween
			}
			return map[string]any{op: map[string]any{"min": min, "max": max}}, nil
		}

	case types.OpIsBefore, types.OpIsOnOrBefore, types.OpIsOnOrAfter:
		date := comparisonDate(value)
		if date == "" {
			return nil, fmt.Errorf("%s on field %q needs a date value", comparison, f.Slug)
		}
		return map[string]any{comparison: timeutil.Normalize(date)}, nil

	case types.OpIsEmpty, types.OpIsNotEmpty, types.OpIsOverdue, types.OpIsNotOverdue:
		return map[string]any{comparison: true}, nil

	case types.OpIsAnyOf, types.OpIsNoneOf, types.OpHasAnyOf, types.OpHasAllOf,
		types.OpIsExactly, types.OpHasNoneOf:
		return map[string]any{comparison: value}, nil

	case types.OpContains, types.OpNotContains, types.OpDoesNotContain,
		types.OpIsGreaterThan, types.OpIsLessThan,
		types.OpIsEqualOrGreater, types.OpIsEqualOrLess,
		types.OpBetween, types.OpNotBetween,
		types.OpFileNameContains, types.OpFileTypeIs:
		return map[string]any{comparison: value}, nil

	default:
		// unknown operator: fall through to raw equality
		return value, nil
	}
	return map[string]any{comparison: value}, nil
}

// comparisonDate extracts the date from either a bare string or a
// {date_mode, date_mode_value} wrapper.
func comparisonDate(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["date_mode_value"].(string); ok {
			return s
		}
		if s, ok := v["date"].(string); ok {
			return s
		}
	}
	return ""
}

// ApplySort adds the Remote API sort DSL to the builder.
func (b *Builder) ApplySort(sorts []types.Sort) *Builder {
	for _, s := range sorts {
		b.OrderBy(s.Field, s.Direction)
	}
	return b
}
