// Package schema turns declarative attribute tables into model types.
//
// A Schema is an ordered list of fields. Each field is either a rule (see
// package rules), a nested schema, or an array whose elements follow a nested
// schema or a rule. Build resolves every rule once and returns a Type, the
// constructor for Model instances:
//
//	signer := schema.New(
//		schema.RuleField("type", "[organisation, employee, manager, external] / mandatory"),
//		schema.RuleField("signing_order", "INTEGER"),
//	)
//	sig := schema.MustBuild(schema.New(
//		schema.RuleField("title", "VARCHAR(255) / mandatory"),
//		schema.ArrayField("signers", signer),
//	), "signature")
//
//	m, err := sig.From(map[string]any{"title": "NDA"})
//	err = m.List("signers").Append(map[string]any{"type": "employee"})
//
// Every write goes through the field's coercion function, so a Model only
// ever holds values of the declared shape. Schemas and Types are immutable
// once built and may be shared freely; a Model belongs to its creator.
package schema

// Kind is the shape of a schema field.
type Kind int

const (
	// KindRule is a scalar field constrained by a rule string.
	KindRule Kind = iota

	// KindObject is a single nested object.
	KindObject

	// KindArray is an ordered list of nested objects or rule-checked values.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Field declares one schema entry.
type Field struct {
	Name string
	Kind Kind

	// Rule is set for KindRule fields and for arrays of rule-checked values.
	Rule string

	// Schema is set for KindObject fields and for arrays of objects.
	Schema *Schema
}

// RuleField declares a scalar field.
func RuleField(name, rule string) Field {
	return Field{Name: name, Kind: KindRule, Rule: rule}
}

// ObjectField declares a nested object field.
func ObjectField(name string, s *Schema) Field {
	return Field{Name: name, Kind: KindObject, Schema: s}
}

// ArrayField declares an array of nested objects.
func ArrayField(name string, elem *Schema) Field {
	return Field{Name: name, Kind: KindArray, Schema: elem}
}

// ArrayOfRule declares an array of scalar values checked by rule.
func ArrayOfRule(name, rule string) Field {
	return Field{Name: name, Kind: KindArray, Rule: rule}
}

// Schema is an ordered, immutable collection of fields.
type Schema struct {
	fields []Field
}

// New returns a schema with the given fields, in order.
func New(fields ...Field) *Schema {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return &Schema{fields: fs}
}

// Fields returns a copy of the schema's fields.
func (s *Schema) Fields() []Field {
	fs := make([]Field, len(s.fields))
	copy(fs, s.fields)
	return fs
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Lookup returns the field with the given name.
func (s *Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
