// Package filter validates (field type, comparison operator) pairs
// against the Remote API's operator catalog and suggests canonical
// replacements for the common mistakes.
package filter

import (
	"fmt"

	"github.com/fieldstone/gridcache/internal/types"
)

// Result is the outcome of validating one (field type, operator) pair.
// Known=false means the field type cannot be validated (formula family,
// unknown remote types) and the clause must not be blocked.
type Result struct {
	OK         bool
	Known      bool
	Suggestion string
}

var equalityOps = []string{types.OpIs, types.OpIsNot, types.OpIsEqualTo, types.OpIsNotEqualTo}
var emptinessOps = []string{types.OpIsEmpty, types.OpIsNotEmpty}
var numericOrderOps = []string{
	types.OpIsGreaterThan, types.OpIsLessThan,
	types.OpIsEqualOrGreater, types.OpIsEqualOrLess,
}
var textOps = []string{types.OpContains, types.OpNotContains, types.OpDoesNotContain}
var singleSelectOps = []string{types.OpIsAnyOf, types.OpIsNoneOf}
var multiSelectOps = []string{types.OpHasAnyOf, types.OpHasAllOf, types.OpIsExactly, types.OpHasNoneOf}
var dateOrderOps = []string{
	types.OpIsBefore, types.OpIsOnOrBefore, types.OpIsOnOrAfter,
	types.OpBetween, types.OpNotBetween,
}
var fileOps = []string{types.OpFileNameContains, types.OpFileTypeIs}

func opSet(groups ...[]string) map[string]bool {
	set := map[string]bool{}
	for _, g := range groups {
		for _, op := range g {
			set[op] = true
		}
	}
	return set
}

// OperatorsFor returns the legal operator set for a field type, or nil
// when the type cannot be validated.
func OperatorsFor(t types.FieldType) map[string]bool {
	if types.IsFormulaFamily(t) {
		return nil
	}
	switch {
	case t == types.FieldYesNo:
		return opSet(equalityOps)
	case t == types.FieldStatus, t == types.FieldSingleSelect:
		return opSet(equalityOps, singleSelectOps, emptinessOps)
	case t == types.FieldDueDate:
		return opSet(equalityOps, dateOrderOps, emptinessOps,
			[]string{types.OpIsOverdue, types.OpIsNotOverdue})
	case types.IsRangeField(t), types.IsDateLikeField(t):
		return opSet(equalityOps, dateOrderOps, emptinessOps)
	case t == types.FieldFiles, t == types.FieldFile, t == types.FieldImages, t == types.FieldSignature:
		return opSet(fileOps, emptinessOps)
	case types.IsJSONArrayField(t):
		return opSet(multiSelectOps, emptinessOps)
	case types.IsNumericField(t):
		return opSet(equalityOps, numericOrderOps, emptinessOps)
	case types.IsTextField(t):
		return opSet(equalityOps, textOps, emptinessOps)
	}
	// unknown remote type
	return nil
}

// Validate checks one (field type, operator) pair. Un-validatable types
// report Known=false with OK=true so callers never block them.
func Validate(t types.FieldType, op string) Result {
	ops := OperatorsFor(t)
	if ops == nil {
		return Result{OK: true, Known: false}
	}
	if ops[op] {
		return Result{OK: true, Known: true}
	}
	return Result{OK: false, Known: true, Suggestion: suggest(t, op)}
}

// suggest returns the canonical replacement operator for a known-bad
// combination, or "".
func suggest(t types.FieldType, op string) string {
	switch {
	case types.IsJSONArrayField(t):
		switch op {
		case types.OpIs, types.OpIsEqualTo, types.OpIsAnyOf:
			return types.OpHasAnyOf
		case types.OpIsNot, types.OpIsNotEqualTo, types.OpIsNoneOf:
			return types.OpHasNoneOf
		}
	case t == types.FieldSingleSelect, t == types.FieldStatus:
		switch op {
		case types.OpHasAnyOf:
			return types.OpIsAnyOf
		case types.OpHasNoneOf:
			return types.OpIsNoneOf
		}
	case types.IsTextField(t):
		for _, numOp := range numericOrderOps {
			if op == numOp {
				return types.OpIs
			}
		}
	}
	return ""
}

// ValidationError is the strict-mode error for an illegal combination.
type ValidationError struct {
	Field      string
	FieldType  types.FieldType
	Operator   string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("operator %q is not valid for field %q (type %s)",
		e.Operator, e.Field, e.FieldType)
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}
	return msg
}
