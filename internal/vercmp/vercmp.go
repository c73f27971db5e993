// Package vercmp compares addon version strings such as "1.2", "2.0.1" or
// "1.1-a1" and evaluates constraint expressions like ">=1.0".
//
// A version is a dotted numeric release optionally followed by a
// "-"-delimited pre-release suffix. A pre-release is ordered before the
// same release without one. The empty string stands for "unversioned" and
// is only ever equal to itself.
package vercmp

import (
	"strconv"
	"strings"
	"unicode"
)

// Operator is a version comparison operator.
type Operator string

const (
	OpEq Operator = "=="
	OpLe Operator = "<="
	OpGe Operator = ">="
	OpLt Operator = "<"
	OpGt Operator = ">"
)

// operators are ordered so two-character operators match before their prefixes.
var operators = []Operator{OpEq, OpLe, OpGe, OpLt, OpGt}

type version struct {
	release []uint64
	pre     []string
}

// Compare reports whether "a op b" holds. An empty op means "==".
// Malformed versions never satisfy any operator; two empty (unversioned)
// values satisfy "==", "<=" and ">=".
func Compare(a, b, op string) bool {
	if op == "" {
		op = string(OpEq)
	}

	if a == "" || b == "" {
		if a != "" || b != "" {
			return false
		}
		switch Operator(op) {
		case OpEq, OpLe, OpGe:
			return true
		default:
			return false
		}
	}

	c, ok := Cmp(a, b)
	if !ok {
		return false
	}

	switch Operator(op) {
	case OpEq:
		return c == 0
	case OpLe:
		return c <= 0
	case OpGe:
		return c >= 0
	case OpLt:
		return c < 0
	case OpGt:
		return c > 0
	default:
		return false
	}
}

// Cmp returns -1, 0 or 1 depending on whether a is older than, equal to or
// newer than b. ok is false when either side is empty or malformed.
func Cmp(a, b string) (int, bool) {
	va, ok := parse(a)
	if !ok {
		return 0, false
	}
	vb, ok := parse(b)
	if !ok {
		return 0, false
	}
	return compareVersions(va, vb), true
}

// Valid reports whether s is a well-formed, non-empty version.
func Valid(s string) bool {
	_, ok := parse(s)
	return ok
}

// Newer reports whether candidate is strictly newer than current.
// A versioned candidate is considered newer than an unversioned current.
func Newer(candidate, current string) bool {
	if current == "" {
		return Valid(candidate)
	}
	return Compare(candidate, current, string(OpGt))
}

func parse(s string) (version, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') && isDigit(s[1]) {
		s = s[1:]
	}
	if s == "" {
		return version{}, false
	}

	main, pre, hasPre := strings.Cut(s, "-")

	var v version
	for _, part := range strings.Split(main, ".") {
		if part == "" || !allDigits(part) {
			return version{}, false
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return version{}, false
		}
		v.release = append(v.release, n)
	}

	if hasPre {
		if pre == "" {
			return version{}, false
		}
		for _, part := range strings.FieldsFunc(pre, func(r rune) bool { return r == '.' || r == '-' }) {
			v.pre = append(v.pre, part)
		}
		if len(v.pre) == 0 {
			return version{}, false
		}
	}

	return v, true
}

func compareVersions(a, b version) int {
	n := max(len(a.release), len(b.release))
	for i := 0; i < n; i++ {
		var x, y uint64
		if i < len(a.release) {
			x = a.release[i]
		}
		if i < len(b.release) {
			y = b.release[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a.pre) == 0 && len(b.pre) == 0:
		return 0
	case len(a.pre) == 0:
		return 1
	case len(b.pre) == 0:
		return -1
	}

	for i := 0; i < len(a.pre) && i < len(b.pre); i++ {
		if c := compareIdent(a.pre[i], b.pre[i]); c != 0 {
			return c
		}
	}
	return sign(len(a.pre) - len(b.pre))
}

// compareIdent orders pre-release sub-segments naturally: digit runs are
// compared numerically, everything else lexically, and a digit run sorts
// before a letter run.
func compareIdent(a, b string) int {
	ra, rb := runs(a), runs(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		da, db := isDigit(ra[i][0]), isDigit(rb[i][0])
		switch {
		case da && db:
			if c := compareNumeric(ra[i], rb[i]); c != 0 {
				return c
			}
		case da:
			return -1
		case db:
			return 1
		default:
			if c := strings.Compare(strings.ToLower(ra[i]), strings.ToLower(rb[i])); c != 0 {
				return c
			}
		}
	}
	return sign(len(ra) - len(rb))
}

// compareNumeric compares digit strings of arbitrary length without overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func runs(s string) []string {
	var out []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			out = append(out, s[start:i])
			start = i
		}
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
