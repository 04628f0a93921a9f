package schema

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/hashicorp-forge/peopledoc/pkg/rules"
)

// Model is an instance of a Type. It stores only declared fields, and only
// values that passed the field's coercion.
type Model struct {
	typ    *Type
	values []any
	set    []bool
}

// New returns an empty model: every field is undefined.
func (t *Type) New() *Model {
	return &Model{
		typ:    t,
		values: make([]any, len(t.fields)),
		set:    make([]bool, len(t.fields)),
	}
}

// From builds a model from raw input. Declared keys are copied one by one
// through Set, in schema order, so errors surface exactly as they would for
// a manual assignment. Undeclared keys are ignored.
//
// raw may be nil (empty model), a map with string keys, a struct (converted
// with its json tags), or a *Model. A *Model of this exact Type is returned
// unchanged.
func (t *Type) From(raw any) (*Model, error) {
	switch r := raw.(type) {
	case nil:
		return t.New(), nil
	case *Model:
		if r == nil {
			return t.New(), nil
		}
		if r.typ == t {
			return r, nil
		}
		raw = r.ToJSON()
	}

	src, err := toMap(raw)
	if err != nil {
		return nil, &rules.ValidationError{
			Field:    displayPath(t.name),
			Value:    raw,
			Expected: "an object",
		}
	}

	m := t.New()
	for i, d := range t.fields {
		v, ok := src[d.field.Name]
		if !ok {
			continue
		}
		if err := m.setIndex(i, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustFrom is like From but panics on error.
func (t *Type) MustFrom(raw any) *Model {
	m, err := t.From(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Type returns the model's type.
func (m *Model) Type() *Type {
	return m.typ
}

// Get returns the stored value of a field, or nil when it is undefined.
// Object fields return a *Model and array fields a *List.
func (m *Model) Get(name string) any {
	i, ok := m.typ.index[name]
	if !ok {
		return nil
	}
	return m.values[i]
}

// Has reports whether a field holds a value.
func (m *Model) Has(name string) bool {
	i, ok := m.typ.index[name]
	return ok && m.set[i]
}

// Set coerces v through the field's rule and stores it.
//
// For rule fields a nil value clears the field. For object fields nil stores
// an empty nested model, and for array fields an empty list. Validation
// failures are returned as *rules.ValidationError and leave the previous
// value untouched.
func (m *Model) Set(name string, v any) error {
	i, ok := m.typ.index[name]
	if !ok {
		return fmt.Errorf("%w %q on %s", ErrUnknownField, name, displayPath(m.typ.name))
	}
	return m.setIndex(i, v)
}

// MustSet is like Set but panics on error.
func (m *Model) MustSet(name string, v any) *Model {
	if err := m.Set(name, v); err != nil {
		panic(err)
	}
	return m
}

// Unset clears a field.
func (m *Model) Unset(name string) {
	if i, ok := m.typ.index[name]; ok {
		m.values[i], m.set[i] = nil, false
	}
}

// Object returns the nested model stored in an object field, or nil.
func (m *Model) Object(name string) *Model {
	v, _ := m.Get(name).(*Model)
	return v
}

// List returns the list stored in an array field, or nil.
func (m *Model) List(name string) *List {
	v, _ := m.Get(name).(*List)
	return v
}

func (m *Model) setIndex(i int, v any) error {
	val, err := m.typ.fields[i].assign(v)
	if err != nil {
		return err
	}
	if val == nil {
		m.values[i], m.set[i] = nil, false
		return nil
	}
	m.values[i], m.set[i] = val, true
	return nil
}

func (d *descriptor) assign(v any) (any, error) {
	switch d.field.Kind {
	case KindObject:
		nested, err := d.nested.From(v)
		if err != nil {
			return nil, err
		}
		return nested, nil

	case KindArray:
		l := d.newList()
		if v == nil {
			return l, nil
		}
		if other, ok := v.(*List); ok {
			v = other.items
		}
		items, ok := rules.Sequence(v)
		if !ok {
			return nil, &rules.ValidationError{
				Field:    d.path,
				Value:    v,
				Rule:     d.field.Rule,
				Expected: "an array",
			}
		}
		if err := l.Append(items...); err != nil {
			return nil, err
		}
		return l, nil

	default:
		if v == nil {
			return nil, nil
		}
		return d.coerce(v)
	}
}

func (d *descriptor) newList() *List {
	return &List{
		path:   d.path,
		elem:   d.nested,
		coerce: d.coerce,
		rule:   d.field.Rule,
	}
}

// ToJSON returns the canonical projection: a map of the defined fields with
// nested models and lists unwrapped into plain maps and slices.
func (m *Model) ToJSON() map[string]any {
	out := make(map[string]any, len(m.values))
	for i, d := range m.typ.fields {
		if m.set[i] {
			out[d.field.Name] = project(m.values[i])
		}
	}
	return out
}

func project(v any) any {
	switch x := v.(type) {
	case *Model:
		if x == nil {
			return nil
		}
		return x.ToJSON()
	case *List:
		if x == nil {
			return nil
		}
		return x.project()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = project(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = project(e)
		}
		return out
	}
	return v
}

// MarshalJSON encodes the projection with keys in schema order.
func (m *Model) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for i, d := range m.typ.fields {
		if !m.set[i] {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(d.field.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[i])
		if err != nil {
			return nil, fmt.Errorf("error encoding %s: %w", d.path, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the model's content with a JSON object, applying the
// same coercion as From. The model must have been created from a Type.
func (m *Model) UnmarshalJSON(data []byte) error {
	if m.typ == nil {
		return fmt.Errorf("schema: cannot decode into a model without a type")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fresh, err := m.typ.From(raw)
	if err != nil {
		return err
	}
	m.values, m.set = fresh.values, fresh.set
	return nil
}

// Decode copies the projection into a typed struct using its json tags.
// DateISO8601 strings decode into time.Time fields.
func (m *Model) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(m.ToJSON())
}

// Validate checks that every mandatory field is defined (and, for strings,
// not blank), recursing into nested models and lists.
func (m *Model) Validate() error {
	errs := validation.Errors{}

	for i, d := range m.typ.fields {
		var v any
		if m.set[i] {
			v = m.values[i]
		}

		var rs []validation.Rule
		if d.field.Kind == KindRule && d.rule.Mandatory() {
			rs = append(rs, validation.NotNil)
			if _, ok := v.(string); ok {
				rs = append(rs, validation.Required)
			}
		}

		if err := validation.Validate(v, rs...); err != nil {
			errs[d.field.Name] = err
		}
	}

	return errs.Filter()
}

// String renders the model as "<type><json>" for logs. It never fails.
func (m *Model) String() string {
	b, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s{<error: %v>}", displayPath(m.typ.name), err)
	}
	return displayPath(m.typ.name) + string(b)
}

// GoString implements fmt.GoStringer for %#v.
func (m *Model) GoString() string {
	return fmt.Sprintf("&schema.Model{Type: %q, Fields: %#v}", m.typ.name, m.ToJSON())
}

func toMap(raw any) (map[string]any, error) {
	if mp, ok := raw.(map[string]any); ok {
		return mp, nil
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings")
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil

	case reflect.Struct:
		out := map[string]any{}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: "json",
			Result:  &out,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(rv.Interface()); err != nil {
			return nil, err
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported raw input %T", raw)
}
