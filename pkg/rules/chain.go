package rules

// CoerceFunc validates and normalizes a single value for one field.
type CoerceFunc func(v any) (any, error)

// Matcher recognizes a rule and produces its coercion function.
type Matcher interface {
	Match(r Rule, field string) (CoerceFunc, bool)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(r Rule, field string) (CoerceFunc, bool)

// Match implements Matcher.
func (f MatcherFunc) Match(r Rule, field string) (CoerceFunc, bool) {
	return f(r, field)
}

// Chain is an ordered, immutable list of matchers. The first matcher that
// recognizes a rule wins. A Chain always ends with the passthrough matcher,
// so Resolve never fails.
type Chain struct {
	matchers []Matcher
}

// NewChain returns a chain trying the given matchers in order, followed by
// the passthrough matcher.
func NewChain(matchers ...Matcher) Chain {
	ms := make([]Matcher, 0, len(matchers)+1)
	for _, m := range matchers {
		if m != nil {
			ms = append(ms, m)
		}
	}
	ms = append(ms, Passthrough())

	return Chain{matchers: ms}
}

// DefaultChain returns the chain used for PeopleDoc attribute tables.
func DefaultChain() Chain {
	return NewChain(
		String(),
		Boolean(),
		Integer(),
		Enum(),
		Date(),
		Timestamp(),
		List(),
	)
}

// Resolve returns the coercion function for a rule. field is only used to
// name the field in validation errors.
func (c Chain) Resolve(r Rule, field string) CoerceFunc {
	for _, m := range c.matchers {
		if fn, ok := m.Match(r, field); ok {
			return fn
		}
	}
	// Only reachable on a zero Chain.
	return passthrough
}

// Len returns the number of matchers, including passthrough.
func (c Chain) Len() int {
	return len(c.matchers)
}
