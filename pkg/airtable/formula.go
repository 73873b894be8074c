package airtable

import "strings"

// Formula is a filter expression for Select calls. Building filters through
// this type keeps quote escaping in one place instead of ad hoc string
// interpolation at every call site.
type Formula string

// Field starts a formula against a named column.
func Field(name string) FieldRef { return FieldRef(name) }

// FieldRef is a column reference awaiting a comparison.
type FieldRef string

// Equals compares the field to a string value, case-sensitive exact match.
func (f FieldRef) Equals(value string) Formula {
	return Formula("{" + string(f) + "} = '" + escape(value) + "'")
}

// And combines formulas; all must hold.
func And(formulas ...Formula) Formula {
	if len(formulas) == 1 {
		return formulas[0]
	}
	parts := make([]string, len(formulas))
	for i, f := range formulas {
		parts[i] = string(f)
	}
	return Formula("AND(" + strings.Join(parts, ", ") + ")")
}

// String returns the formula text for the filterByFormula parameter.
func (f Formula) String() string { return string(f) }

func escape(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
