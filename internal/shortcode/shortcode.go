// Package shortcode normalizes the user-typed mnemonics accounts are known by.
package shortcode

import (
	"regexp"
	"strings"
)

var reCode = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,49}$`)

// Valid returns true if s matches ^[A-Z0-9][A-Z0-9._-]{0,49}$
func Valid(s string) bool {
	return reCode.MatchString(s)
}

// Normalize trims s, upper-cases it and collapses inner whitespace runs to a
// single '-', so "petty cash " becomes "PETTY-CASH".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevDash := false
	for _, r := range strings.ToUpper(s) {
		if r == ' ' || r == '\t' {
			if !prevDash {
				out = append(out, '-')
				prevDash = true
			}
			continue
		}
		prevDash = false
		out = append(out, r)
	}
	return string(out)
}

// Equal compares two codes the way lookups do.
func Equal(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
