package vercmp

import "strings"

// Constraint is a parsed "<op><version>" expression. A zero Constraint
// accepts any version.
type Constraint struct {
	Op      Operator
	Version string
}

// ParseConstraint parses expressions such as ">=1.0", "<2", "1.5" or "=1.5".
// A missing operator means "==". An empty expression accepts anything.
func ParseConstraint(s string) Constraint {
	s = strings.TrimSpace(s)
	if s == "" {
		return Constraint{}
	}

	for _, op := range operators {
		if strings.HasPrefix(s, string(op)) {
			return Constraint{Op: op, Version: strings.TrimSpace(s[len(op):])}
		}
	}

	// A lone "=" is accepted as a shorthand for "=="
	if rest, ok := strings.CutPrefix(s, "="); ok {
		return Constraint{Op: OpEq, Version: strings.TrimSpace(rest)}
	}

	return Constraint{Op: OpEq, Version: s}
}

// Any reports whether the constraint accepts every version.
func (c Constraint) Any() bool {
	return c.Version == ""
}

// SatisfiedBy reports whether version v meets the constraint.
func (c Constraint) SatisfiedBy(v string) bool {
	if c.Any() {
		return true
	}
	return Compare(v, c.Version, string(c.Op))
}

// String returns the constraint in "<op><version>" form.
func (c Constraint) String() string {
	if c.Any() {
		return ""
	}
	return string(c.Op) + c.Version
}

// Satisfies reports whether version v meets the constraint expression.
func Satisfies(v, constraint string) bool {
	return ParseConstraint(constraint).SatisfiedBy(v)
}
