package schema

import (
	"bytes"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"

	"github.com/hashicorp-forge/peopledoc/pkg/rules"
)

// List is the container stored in array fields. Values inserted through
// Append and Prepend are coerced like any other write: raw objects become
// Models of the element type, scalars go through the element rule.
type List struct {
	path   string
	rule   string
	elem   *Type
	coerce rules.CoerceFunc
	items  []any
}

// Append coerces vs and adds them at the end. Nothing is added if any value
// fails.
func (l *List) Append(vs ...any) error {
	items, err := l.coerceAll(vs)
	if err != nil {
		return err
	}
	l.items = append(l.items, items...)
	return nil
}

// Prepend coerces vs and inserts them at the start, keeping their order.
// Nothing is inserted if any value fails.
func (l *List) Prepend(vs ...any) error {
	items, err := l.coerceAll(vs)
	if err != nil {
		return err
	}
	l.items = append(items, l.items...)
	return nil
}

func (l *List) coerceAll(vs []any) ([]any, error) {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		c, err := l.coerceOne(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (l *List) coerceOne(v any) (any, error) {
	if l.elem != nil {
		m, err := l.elem.From(v)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	if v == nil {
		return nil, &rules.ValidationError{
			Field:    l.path,
			Rule:     l.rule,
			Expected: "a non-nil element",
		}
	}
	return l.coerce(v)
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the element at index i.
func (l *List) At(i int) any {
	return l.items[i]
}

// Model returns the element at index i as a *Model, or nil for lists of
// scalars.
func (l *List) Model(i int) *Model {
	m, _ := l.items[i].(*Model)
	return m
}

// Models returns the elements of an object list. It returns nil for lists of
// scalars.
func (l *List) Models() []*Model {
	if l.elem == nil {
		return nil
	}
	out := make([]*Model, len(l.items))
	for i, v := range l.items {
		out[i] = v.(*Model)
	}
	return out
}

// Values returns a copy of the stored elements.
func (l *List) Values() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Elem returns the element type of an object list.
func (l *List) Elem() *Type {
	return l.elem
}

func (l *List) project() []any {
	out := make([]any, len(l.items))
	for i, v := range l.items {
		out[i] = project(v)
	}
	return out
}

// MarshalJSON encodes the elements in order.
func (l *List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range l.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("error encoding %s[%d]: %w", l.path, i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Validate validates every nested model, keyed by index.
func (l *List) Validate() error {
	errs := validation.Errors{}
	for i, v := range l.items {
		if err := validation.Validate(v); err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	return errs.Filter()
}
