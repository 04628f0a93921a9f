package rules

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	reString    = regexp.MustCompile(`(?i)^VARCHAR(?:\(([0-9]+)\))?`)
	reBool      = regexp.MustCompile(`(?i)^(?:BOOLEAN|true/false)`)
	reInteger   = regexp.MustCompile(`(?i)^INTEGER`)
	reEnum      = regexp.MustCompile(`^\[([^\]]+)\]`)
	reDate      = regexp.MustCompile(`(?i)^YYYY-MM-DD`)
	reTimestamp = regexp.MustCompile(`(?i)^DateISO8601`)
	reList      = regexp.MustCompile(`(?i)^LIST`)

	reValidDate = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

const (
	// DateLayout is the wire format of calendar date fields.
	DateLayout = "2006-01-02"

	// TimestampLayout is the wire format used when a time.Time is written to
	// a DateISO8601 field.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// String matches VARCHAR and VARCHAR(n). Values are stringified and silently
// truncated to n runes.
func String() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		m := reString.FindStringSubmatch(r.Body)
		if m == nil {
			return nil, false
		}

		max := -1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				max = n
			}
		}

		return func(v any) (any, error) {
			return truncate(stringify(v), max), nil
		}, true
	})
}

// Boolean matches BOOLEAN (and the legacy "true/false" form).
func Boolean() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		if !reBool.MatchString(r.Body) {
			return nil, false
		}
		return func(v any) (any, error) {
			return truthy(v), nil
		}, true
	})
}

// Integer matches INTEGER. Non-numeric input is rejected rather than being
// turned into a sentinel value.
func Integer() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		if !reInteger.MatchString(r.Body) {
			return nil, false
		}
		return func(v any) (any, error) {
			n, ok := toInt64(v)
			if !ok {
				return nil, &ValidationError{
					Field:    field,
					Value:    v,
					Rule:     r.Raw,
					Expected: "a base-10 integer",
				}
			}
			return n, nil
		}, true
	})
}

// Enum matches "[a, b, c]". Only strings equal to one of the literals pass.
func Enum() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		m := reEnum.FindStringSubmatch(r.Body)
		if m == nil {
			return nil, false
		}

		items := strings.Split(strings.Join(strings.Fields(m[1]), ""), ",")

		return func(v any) (any, error) {
			if s, ok := v.(string); ok {
				for _, item := range items {
					if s == item {
						return s, nil
					}
				}
			}
			return nil, &ValidationError{
				Field:    field,
				Value:    v,
				Rule:     r.Raw,
				Expected: fmt.Sprintf("one of [%s] as string", m[1]),
				Allowed:  items,
			}
		}, true
	})
}

// Date matches YYYY-MM-DD. A time.Time is formatted from its local calendar
// fields.
func Date() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		if !reDate.MatchString(r.Body) {
			return nil, false
		}
		return func(v any) (any, error) {
			if s, ok := v.(string); ok && reValidDate.MatchString(s) {
				return s, nil
			}
			if t, ok := asTime(v); ok {
				return t.Local().Format(DateLayout), nil
			}
			return nil, &ValidationError{
				Field:    field,
				Value:    v,
				Rule:     r.Raw,
				Expected: "a YYYY-MM-DD string or a time.Time",
			}
		}, true
	})
}

// Timestamp matches DateISO8601. Parseable date-time strings are kept
// verbatim; a time.Time is rendered in UTC with millisecond precision.
func Timestamp() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		if !reTimestamp.MatchString(r.Body) {
			return nil, false
		}
		return func(v any) (any, error) {
			if s, ok := v.(string); ok {
				if _, err := dateparse.ParseAny(s); err == nil {
					return s, nil
				}
			}
			if t, ok := asTime(v); ok {
				return t.UTC().Format(TimestampLayout), nil
			}
			return nil, &ValidationError{
				Field:    field,
				Value:    v,
				Rule:     r.Raw,
				Expected: "an ISO 8601 string or a time.Time",
			}
		}, true
	})
}

// List matches the legacy untyped LIST rule. Any slice or array is accepted
// and copied; its elements are left unchanged.
func List() Matcher {
	return MatcherFunc(func(r Rule, field string) (CoerceFunc, bool) {
		if !reList.MatchString(r.Body) {
			return nil, false
		}
		return func(v any) (any, error) {
			items, ok := Sequence(v)
			if !ok {
				return nil, &ValidationError{
					Field:    field,
					Value:    v,
					Rule:     r.Raw,
					Expected: "an array",
				}
			}
			return items, nil
		}, true
	})
}

// Passthrough matches every rule and returns values unchanged.
func Passthrough() Matcher {
	return MatcherFunc(func(Rule, string) (CoerceFunc, bool) {
		return passthrough, true
	})
}

func passthrough(v any) (any, error) {
	return v, nil
}

// Sequence reports whether v is a slice or array (but not a string or byte
// slice) and returns its elements as []any.
func Sequence(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		out := make([]any, len(items))
		copy(out, items)
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func truncate(s string, max int) string {
	if max < 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case bool, nil:
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case fmt.Stringer:
		// json.Number and friends.
		n, err := strconv.ParseInt(strings.TrimSpace(x.String()), 10, 64)
		if err == nil {
			return n, true
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}
