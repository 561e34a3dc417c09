package supp

import "strings"

// DefaultMaxLength is the per-SDTMIG-4.5.3.2 character-variable ceiling SUPP
// values are split against.
const DefaultMaxLength = 200

// SplitLongValue breaks value into parts no longer than maxLength runes
// each, preferring to break at the last whitespace before the boundary,
// falling back to the last punctuation rune, and finally to a hard
// rune-boundary cut when neither is available. A value already within maxLength is returned as a single-part
// slice.
func SplitLongValue(value string, maxLength int) []string {
	runes := []rune(value)
	if len(runes) <= maxLength || maxLength <= 0 {
		return []string{value}
	}

	var parts []string
	for len(runes) > maxLength {
		cut := findBreakPoint(runes, maxLength)
		part := strings.TrimRight(string(runes[:cut]), " ")
		parts = append(parts, part)
		runes = runes[cut:]
		runes = []rune(strings.TrimLeft(string(runes), " "))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// findBreakPoint returns the index in runes (<= maxLength) to cut at: the
// last whitespace at or before maxLength, else the last punctuation rune,
// else maxLength itself.
func findBreakPoint(runes []rune, maxLength int) int {
	for i := maxLength; i > 0; i-- {
		if isBreakingSpace(runes[i-1]) {
			return i - 1
		}
	}
	for i := maxLength; i > 0; i-- {
		if isBreakingPunctuation(runes[i-1]) {
			return i
		}
	}
	return maxLength
}

func isBreakingSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

func isBreakingPunctuation(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '-', '!', '?':
		return true
	}
	return false
}
