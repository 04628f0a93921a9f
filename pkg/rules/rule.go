// Package rules parses the compact field-rule language used by PeopleDoc
// attribute tables (VARCHAR(n), BOOLEAN, INTEGER, [a, b], YYYY-MM-DD,
// DateISO8601, ...) and resolves each rule into a coercion function.
//
// Rules are resolved once per schema field, when the schema is built. The
// resulting CoerceFunc is then applied to every value written to that field.
//
//	chain := rules.DefaultChain()
//	coerce := chain.Resolve(rules.Parse("VARCHAR(5)"), "employee.first_name")
//	v, err := coerce("Jonathan") // "Jonat", nil
package rules

import (
	"regexp"
	"strings"
)

// ModifierMandatory marks a field that must be present before a model is
// sent to the API.
const ModifierMandatory = "mandatory"

// modifierSep splits "VARCHAR(255) / mandatory" but leaves the legacy
// "true/false" boolean form intact.
var modifierSep = regexp.MustCompile(`\s+/\s*`)

// Rule is a parsed, immutable field constraint.
type Rule struct {
	// Raw is the rule exactly as written in the attribute table.
	Raw string

	// Body is the constraint part that matchers inspect, e.g. "VARCHAR(255)".
	Body string

	// Modifiers are the trailing "/ xxx" annotations, lower-cased.
	Modifiers []string
}

// Parse splits a raw rule string into its body and modifiers.
func Parse(raw string) Rule {
	parts := modifierSep.Split(strings.TrimSpace(raw), -1)

	r := Rule{
		Raw:  raw,
		Body: strings.TrimSpace(parts[0]),
	}
	for _, p := range parts[1:] {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			r.Modifiers = append(r.Modifiers, p)
		}
	}

	return r
}

// Mandatory reports whether the rule carries the "mandatory" modifier.
func (r Rule) Mandatory() bool {
	return r.Has(ModifierMandatory)
}

// Has reports whether the rule carries the given modifier.
func (r Rule) Has(modifier string) bool {
	for _, m := range r.Modifiers {
		if m == modifier {
			return true
		}
	}
	return false
}

func (r Rule) String() string {
	return r.Raw
}
