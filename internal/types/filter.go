package types

import "encoding/json"

// Comparison operators of the Remote API filter DSL, plus the synthetic
// between/not_between pair the translator produces for date-only
// equality.
const (
	OpIs                  = "is"
	OpIsNot               = "is_not"
	OpIsEqualTo           = "is_equal_to"
	OpIsNotEqualTo        = "is_not_equal_to"
	OpIsGreaterThan       = "is_greater_than"
	OpIsLessThan          = "is_less_than"
	OpIsEqualOrGreater    = "is_equal_or_greater_than"
	OpIsEqualOrLess       = "is_equal_or_less_than"
	OpContains            = "contains"
	OpNotContains         = "not_contains"
	OpDoesNotContain      = "does_not_contain"
	OpIsEmpty             = "is_empty"
	OpIsNotEmpty          = "is_not_empty"
	OpIsAnyOf             = "is_any_of"
	OpIsNoneOf            = "is_none_of"
	OpHasAnyOf            = "has_any_of"
	OpHasAllOf            = "has_all_of"
	OpIsExactly           = "is_exactly"
	OpHasNoneOf           = "has_none_of"
	OpIsBefore            = "is_before"
	OpIsOnOrBefore        = "is_on_or_before"
	OpIsOnOrAfter         = "is_on_or_after"
	OpIsOverdue           = "is_overdue"
	OpIsNotOverdue        = "is_not_overdue"
	OpFileNameContains    = "file_name_contains"
	OpFileTypeIs          = "file_type_is"
	OpBetween             = "between"
	OpNotBetween          = "not_between"
)

// FilterNode is one entry of a filter group: either a leaf comparison
// (Field/Comparison/Value set) or a nested group (Operator/Fields set).
type FilterNode struct {
	Field      string       `json:"field,omitempty"`
	Comparison string       `json:"comparison,omitempty"`
	Value      any          `json:"value,omitempty"`
	Operator   string       `json:"operator,omitempty"`
	Fields     []FilterNode `json:"fields,omitempty"`
}

// IsGroup reports whether the node is a nested boolean group.
func (n FilterNode) IsGroup() bool {
	return n.Operator != "" && len(n.Fields) > 0
}

// Filter is the Remote API filter DSL root: an and/or group of leaves
// and nested groups.
type Filter struct {
	Operator string       `json:"operator"`
	Fields   []FilterNode `json:"fields"`
}

// ParseFilter decodes a JSON filter document.
func ParseFilter(data []byte) (*Filter, error) {
	var f Filter
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Operator == "" {
		f.Operator = "and"
	}
	return &f, nil
}

// Sort is one entry of the Remote API sort DSL.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}
