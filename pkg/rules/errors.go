package rules

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is matched by every *ValidationError through errors.Is.
var ErrInvalidValue = errors.New("invalid value")

// ValidationError is returned when a value written to a field violates the
// field's rule. It is raised synchronously at assignment time.
type ValidationError struct {
	// Field is the fully qualified field name, e.g. "signature.signers.type".
	Field string

	// Value is the rejected input.
	Value any

	// Rule is the raw rule the value was checked against.
	Rule string

	// Expected describes what the rule accepts.
	Expected string

	// Allowed lists the literal set of an enumerated rule.
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unexpected value for key %s: got [%v] as %s, expected %s",
		e.Field, e.Value, typeName(e.Value), e.Expected)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidValue
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
