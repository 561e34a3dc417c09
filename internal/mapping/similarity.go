// Package mapping scores sponsor source columns against standard variables
// and proposes a one-to-one mapping assignment.
package mapping

import (
	"strings"

	"github.com/xrash/smetrics"
)

// jaroWinklerBoostThreshold and jaroWinklerPrefixSize are the standard
// Winkler-boost parameters (Winkler's own recommended defaults).
const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixSize     = 4
)

// normalizeName prepares a name for similarity scoring: trim,
// lowercase, replace "_", "-", "." with spaces, collapse whitespace.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// jaroWinkler computes Jaro-Winkler similarity on the raw strings passed in;
// callers normalize first.
func jaroWinkler(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return smetrics.JaroWinkler(a, b, jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
}

// finalToken uppercases and trims a name so endsWith can compare suffixes
// like SEQ and CD case-insensitively.
func finalToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func endsWith(name, suffix string) bool {
	return strings.HasSuffix(finalToken(name), suffix)
}
