// Package types defines the shared data model for the gridcache engine:
// the Remote API field catalog, record shapes, the filter DSL, and the
// report structures returned by the cache layer.
package types

// FieldType is the closed set of field types the Remote API can report
// in a table structure. Unknown values are tolerated everywhere and fall
// back to text-with-JSON handling.
type FieldType string

const (
	// Scalar text
	FieldText          FieldType = "textfield"
	FieldTextArea      FieldType = "textarea"
	FieldTitle         FieldType = "title"
	FieldEmail         FieldType = "emailfield"
	FieldPhone         FieldType = "phonefield"
	FieldLink          FieldType = "linkfield"
	FieldSingleSelect  FieldType = "singleselectfield"
	FieldTime          FieldType = "timefield"
	FieldIPAddress     FieldType = "ipaddressfield"
	FieldColorPicker   FieldType = "colorpickerfield"
	FieldSocialNetwork FieldType = "socialnetworkfield"
	FieldButton        FieldType = "buttonfield"
	FieldRecordID      FieldType = "record_id"
	FieldAppSlug       FieldType = "application_slug"
	FieldAppID         FieldType = "application_id"

	// Scalar numeric
	FieldNumber          FieldType = "numberfield"
	FieldCurrency        FieldType = "currencyfield"
	FieldPercent         FieldType = "percentfield"
	FieldRating          FieldType = "ratingfield"
	FieldNumberSlider    FieldType = "numbersliderfield"
	FieldPercentComplete FieldType = "percentcompletefield"
	FieldDuration        FieldType = "durationfield"
	FieldAutoNumber      FieldType = "autonumber"
	FieldCommentsCount   FieldType = "comments_count"
	FieldYesNo           FieldType = "yesnofield"

	// Dates
	FieldDate         FieldType = "datefield"
	FieldDateRange    FieldType = "daterangefield"
	FieldDueDate      FieldType = "duedatefield"
	FieldFirstCreated FieldType = "firstcreatedfield"
	FieldLastUpdated  FieldType = "lastupdatedfield"
	FieldDeletedDate  FieldType = "deleted_date"

	// Multi-valued (stored as JSON arrays)
	FieldMultipleSelect FieldType = "multipleselectfield"
	FieldTag            FieldType = "tagfield"
	FieldAssignedTo     FieldType = "assignedtofield"
	FieldUser           FieldType = "userfield"
	FieldLinkedRecord   FieldType = "linkedrecordfield"
	FieldFiles          FieldType = "filesfield"
	FieldFile           FieldType = "filefield"
	FieldImages         FieldType = "imagesfield"
	FieldSignature      FieldType = "signaturefield"
	FieldFollowedBy     FieldType = "followed_by"

	// Compound
	FieldStatus       FieldType = "statusfield"
	FieldAddress      FieldType = "addressfield"
	FieldFullName     FieldType = "fullnamefield"
	FieldSmartDoc     FieldType = "smartdocfield"
	FieldChecklist    FieldType = "checklistfield"
	FieldVote         FieldType = "votefield"
	FieldTimeTracking FieldType = "timetrackingfield"

	// Formula family. Effective type depends on the expression, so the
	// engine treats these as opaque.
	FieldFormula FieldType = "formulafield"
	FieldLookup  FieldType = "lookupfield"
	FieldRollup  FieldType = "rollupfield"
)

// Field is a single entry of a Remote API table structure. Immutable
// from the engine's viewpoint.
type Field struct {
	Slug      string         `json:"slug"`
	Label     string         `json:"label"`
	FieldType FieldType      `json:"field_type"`
	Params    map[string]any `json:"params,omitempty"`
}

// Primary reports whether the field is marked primary in its params.
func (f Field) Primary() bool {
	if f.Params == nil {
		return false
	}
	b, _ := f.Params["primary"].(bool)
	return b
}

// FieldCatalog is the ordered field list defining a RemoteTable.
type FieldCatalog []Field

// BySlug returns the field with the given slug, if present.
func (c FieldCatalog) BySlug(slug string) (Field, bool) {
	for _, f := range c {
		if f.Slug == slug {
			return f, true
		}
	}
	return Field{}, false
}

// Slugs returns the slug set of the catalog in order.
func (c FieldCatalog) Slugs() []string {
	out := make([]string, len(c))
	for i, f := range c {
		out[i] = f.Slug
	}
	return out
}

// Record is a Remote API record: an id plus slug-keyed field values in
// the API's heterogeneous JSON shapes.
type Record map[string]any

// ID returns the record's id, or "" when absent.
func (r Record) ID() string {
	if s, ok := r["id"].(string); ok {
		return s
	}
	return ""
}

// IsFormulaFamily reports whether t is one of the formula-like types
// whose effective type depends on a remote expression.
func IsFormulaFamily(t FieldType) bool {
	switch t {
	case FieldFormula, FieldLookup, FieldRollup:
		return true
	}
	return false
}

// IsJSONArrayField reports whether values of t are stored as a JSON
// array in a single text column. Exact membership only: substring
// matching would misclassify linkedrecordfield as a text field.
func IsJSONArrayField(t FieldType) bool {
	switch t {
	case FieldMultipleSelect, FieldTag, FieldAssignedTo, FieldUser,
		FieldLinkedRecord, FieldFiles, FieldFile, FieldImages,
		FieldSignature, FieldFollowedBy:
		return true
	}
	return false
}

// IsTextField reports whether t stores a plain text scalar.
func IsTextField(t FieldType) bool {
	switch t {
	case FieldText, FieldTextArea, FieldTitle, FieldEmail, FieldPhone,
		FieldLink, FieldSingleSelect, FieldTime, FieldIPAddress,
		FieldColorPicker, FieldSocialNetwork, FieldButton,
		FieldRecordID, FieldAppSlug, FieldAppID:
		return true
	}
	return false
}

// IsNumericField reports whether t stores a numeric scalar.
func IsNumericField(t FieldType) bool {
	switch t {
	case FieldNumber, FieldCurrency, FieldPercent, FieldRating,
		FieldNumberSlider, FieldPercentComplete, FieldDuration,
		FieldAutoNumber, FieldCommentsCount:
		return true
	}
	return false
}

// IsDateLikeField reports whether t stores date or date-range values.
func IsDateLikeField(t FieldType) bool {
	switch t {
	case FieldDate, FieldDateRange, FieldDueDate, FieldFirstCreated,
		FieldLastUpdated, FieldDeletedDate:
		return true
	}
	return false
}

// IsRangeField reports whether t spans a _from/_to column pair.
func IsRangeField(t FieldType) bool {
	return t == FieldDateRange || t == FieldDueDate
}
