package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"

	"github.com/hashicorp-forge/peopledoc/pkg/rules"
)

// ErrUnknownField is returned when writing a field the schema does not
// declare.
var ErrUnknownField = errors.New("unknown field")

// Type is the constructor built from a Schema. It holds one descriptor per
// field, with rules already resolved.
type Type struct {
	name    string
	schema  *Schema
	fields  []*descriptor
	index   map[string]int
	methods []string
}

type descriptor struct {
	field Field
	path  string
	rule  rules.Rule

	// coerce is set for rule fields and arrays of rule-checked values.
	coerce rules.CoerceFunc

	// nested is set for object fields and arrays of objects.
	nested *Type
}

type buildOptions struct {
	chain   rules.Chain
	methods []string
}

// Option configures Build.
type Option func(*buildOptions)

// WithChain overrides the coercion chain. Nested schemas inherit it.
func WithChain(c rules.Chain) Option {
	return func(o *buildOptions) {
		o.chain = c
	}
}

// WithMethods reserves extension method names on the built type. A name equal
// to a declared field is a build error.
func WithMethods(names ...string) Option {
	return func(o *buildOptions) {
		o.methods = append(o.methods, names...)
	}
}

// WithMethodsOf reserves the exported method names of t, snake-cased
// ("Register" -> "register", "ToJSON" -> "to_json").
func WithMethodsOf(t reflect.Type) Option {
	return func(o *buildOptions) {
		if t == nil {
			return
		}
		for i := 0; i < t.NumMethod(); i++ {
			o.methods = append(o.methods, strcase.ToSnake(t.Method(i).Name))
		}
	}
}

// Build resolves a schema into a Type. path names the entity in errors
// ("signature", "signature.signers"). All problems found are returned
// together.
func Build(s *Schema, path string, opts ...Option) (*Type, error) {
	o := buildOptions{chain: rules.DefaultChain()}
	for _, opt := range opts {
		opt(&o)
	}
	return build(s, path, o)
}

// MustBuild is like Build but panics on error. Use it for package-level
// entity types.
func MustBuild(s *Schema, path string, opts ...Option) *Type {
	t, err := Build(s, path, opts...)
	if err != nil {
		panic(fmt.Sprintf("schema: error building %s: %v", path, err))
	}
	return t
}

func build(s *Schema, path string, o buildOptions) (*Type, error) {
	if s == nil {
		return nil, fmt.Errorf("%s: nil schema", displayPath(path))
	}

	var result *multierror.Error
	t := &Type{
		name:   path,
		schema: s,
		fields: make([]*descriptor, 0, len(s.fields)),
		index:  make(map[string]int, len(s.fields)),
	}

	for _, f := range s.fields {
		if f.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: empty field name", displayPath(path)))
			continue
		}
		if _, dup := t.index[f.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate field %q", displayPath(path), f.Name))
			continue
		}

		d := &descriptor{field: f, path: joinPath(path, f.Name)}

		switch {
		case f.Kind == KindRule:
			d.rule = rules.Parse(f.Rule)
			d.coerce = o.chain.Resolve(d.rule, d.path)

		case f.Kind == KindObject && f.Schema != nil,
			f.Kind == KindArray && f.Schema != nil:
			// Methods belong to the outer type only.
			nested, err := build(f.Schema, d.path, buildOptions{chain: o.chain})
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			d.nested = nested

		case f.Kind == KindArray && f.Rule != "":
			d.rule = rules.Parse(f.Rule)
			d.coerce = o.chain.Resolve(d.rule, d.path)

		default:
			result = multierror.Append(result, fmt.Errorf(
				"%s: %s field has neither a rule nor a schema", d.path, f.Kind))
			continue
		}

		t.index[f.Name] = len(t.fields)
		t.fields = append(t.fields, d)
	}

	seen := make(map[string]bool, len(o.methods))
	for _, m := range o.methods {
		if seen[m] {
			continue
		}
		seen[m] = true
		if _, clash := t.index[m]; clash {
			result = multierror.Append(result, fmt.Errorf(
				"%s: method %q collides with a declared field", displayPath(path), m))
			continue
		}
		t.methods = append(t.methods, m)
	}
	sort.Strings(t.methods)

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the path the type was built with.
func (t *Type) Name() string {
	return t.name
}

// Schema returns the schema the type was built from.
func (t *Type) Schema() *Schema {
	return t.schema
}

// Fields returns the declared field names in order.
func (t *Type) Fields() []string {
	names := make([]string, len(t.fields))
	for i, d := range t.fields {
		names[i] = d.field.Name
	}
	return names
}

// Methods returns the reserved extension method names, sorted.
func (t *Type) Methods() []string {
	out := make([]string, len(t.methods))
	copy(out, t.methods)
	return out
}

// Nested returns the element type of an object or object-array field.
func (t *Type) Nested(name string) (*Type, bool) {
	i, ok := t.index[name]
	if !ok || t.fields[i].nested == nil {
		return nil, false
	}
	return t.fields[i].nested, true
}

func (t *Type) String() string {
	return fmt.Sprintf("schema.Type(%s)", displayPath(t.name))
}
