package domain

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchKind selects the predicate a Matcher applies to a trigger value.
type MatchKind string

const (
	// MatchEmpty is true iff the value is present and equal to "".
	MatchEmpty MatchKind = "empty"
	// MatchRegex is true iff the whole value matches the pattern.
	// A null value with a null pattern matches.
	MatchRegex MatchKind = "regex"
	// MatchLiteral is true iff the value is present and equal to the literal.
	MatchLiteral MatchKind = "literal"
)

// PatternTimeout bounds a single regex evaluation.
const PatternTimeout = 100 * time.Millisecond

// Matcher is an immutable trigger predicate. Build it with EmptyMatcher,
// RegexMatcher or LiteralMatcher.
type Matcher struct {
	kind    MatchKind
	pattern *string
	re      *regexp2.Regexp
	literal string
}

type matchFunc func(m Matcher, value string, present bool) bool

var matchFuncs = map[MatchKind]matchFunc{
	MatchEmpty: func(_ Matcher, value string, present bool) bool {
		return present && value == ""
	},
	MatchLiteral: func(m Matcher, value string, present bool) bool {
		return present && value == m.literal
	},
	MatchRegex: func(m Matcher, value string, present bool) bool {
		switch {
		case !present && m.pattern == nil:
			return true
		case !present || m.re == nil:
			return false
		}
		ok, err := m.re.MatchString(value)
		return err == nil && ok
	},
}

// EmptyMatcher matches the empty string.
func EmptyMatcher() Matcher {
	return Matcher{kind: MatchEmpty}
}

// LiteralMatcher matches one fixed value.
func LiteralMatcher(literal string) Matcher {
	return Matcher{kind: MatchLiteral, literal: literal}
}

// RegexMatcher matches values whose full text matches pattern. A nil pattern
// only matches a null value.
func RegexMatcher(pattern *string) (Matcher, error) {
	m := Matcher{kind: MatchRegex}
	if pattern == nil {
		return m, nil
	}
	re, err := CompileFullMatch(*pattern)
	if err != nil {
		return Matcher{}, err
	}
	p := *pattern
	m.pattern = &p
	m.re = re
	return m, nil
}

// Kind returns the matcher variant.
func (m Matcher) Kind() MatchKind {
	return m.kind
}

// Pattern returns the regex pattern, nil for a null pattern or another kind.
func (m Matcher) Pattern() *string {
	return m.pattern
}

// Literal returns the literal of a MatchLiteral matcher.
func (m Matcher) Literal() string {
	return m.literal
}

// Match evaluates the predicate. present is false for a null value.
func (m Matcher) Match(value string, present bool) bool {
	fn, ok := matchFuncs[m.kind]
	if !ok {
		return false
	}
	return fn(m, value, present)
}

func (m Matcher) String() string {
	switch m.kind {
	case MatchEmpty:
		return "empty"
	case MatchLiteral:
		return fmt.Sprintf("== %q", m.literal)
	case MatchRegex:
		if m.pattern == nil {
			return "regex <null>"
		}
		return fmt.Sprintf("regex %q", *m.pattern)
	}
	return "invalid"
}

// CompileFullMatch compiles pattern anchored at both ends, so it only accepts
// values it matches entirely.
func CompileFullMatch(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(`^(?:`+pattern+`)\z`, regexp2.None)
	if err != nil {
		return nil, &ConfigurationError{
			Component: "matcher",
			Reason:    fmt.Sprintf("invalid pattern %q", pattern),
			Err:       err,
		}
	}
	re.MatchTimeout = PatternTimeout
	return re, nil
}
