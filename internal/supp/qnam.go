// Package supp builds the Supplemental Qualifier dataset (SUPP--) for a
// completed parent domain frame, extracting residual source columns the
// mapping engine left unconsumed.
package supp

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DatasetName computes the SUPP-- dataset name: SUPP{parent} if it fits in
// 8 characters, else SQ{parent}, else the first 8 characters of SQ{parent}.
func DatasetName(parent string) string {
	withSupp := "SUPP" + parent
	if len(withSupp) <= 8 {
		return withSupp
	}
	withSQ := "SQ" + parent
	if len(withSQ) <= 8 {
		return withSQ
	}
	return withSQ[:8]
}

// SanitizeQNAMBase derives the base QNAM from a source column name: NFKC
// normalize, uppercase, collapse runs of non-alphanumeric characters to a
// single underscore, strip leading/trailing underscores, fall back to
// "QVAL" if nothing survives, prepend "Q" if the result starts with a
// digit, then truncate to 8 characters.
func SanitizeQNAMBase(sourceColumn string) string {
	normalized := strings.ToUpper(norm.NFKC.String(sourceColumn))
	var b strings.Builder
	lastWasUnderscore := false
	for _, r := range normalized {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasUnderscore = false
			continue
		}
		if !lastWasUnderscore && b.Len() > 0 {
			b.WriteRune('_')
			lastWasUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "QVAL"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "Q" + out
	}
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

// qnamAllocator resolves base-QNAM collisions across distinct source
// columns by appending a 2-digit sequence, shrinking the prefix to stay
// within 8 characters.
type qnamAllocator struct {
	bySourceColumn map[string]string // source column -> final QNAM
	taken          map[string]string // final QNAM -> owning source column
}

func newQNAMAllocator() *qnamAllocator {
	return &qnamAllocator{
		bySourceColumn: make(map[string]string),
		taken:          make(map[string]string),
	}
}

// Allocate returns the final QNAM for sourceColumn, assigning a fresh one if
// this is the first time the column is seen.
func (a *qnamAllocator) Allocate(sourceColumn string) string {
	if qnam, ok := a.bySourceColumn[sourceColumn]; ok {
		return qnam
	}
	base := SanitizeQNAMBase(sourceColumn)
	owner, collides := a.taken[base]
	if !collides || owner == sourceColumn {
		a.taken[base] = sourceColumn
		a.bySourceColumn[sourceColumn] = base
		return base
	}
	for seq := 1; seq <= 99; seq++ {
		suffix := strconv.Itoa(seq)
		if len(suffix) == 1 {
			suffix = "0" + suffix
		}
		prefixLen := 8 - len(suffix)
		candidate := base
		if len(candidate) > prefixLen {
			candidate = candidate[:prefixLen]
		}
		candidate += suffix
		if owner, collides := a.taken[candidate]; !collides || owner == sourceColumn {
			a.taken[candidate] = sourceColumn
			a.bySourceColumn[sourceColumn] = candidate
			return candidate
		}
	}
	// Exhausted 01-99; fall back to the bare base, accepting a collision
	// rather than panicking (should not happen with realistic column counts).
	a.bySourceColumn[sourceColumn] = base
	return base
}

// continuationQNAM computes the QNAM for the nth (1-based) continuation
// part of a long-value split. If base is shorter than 8 characters the
// numeric suffix is appended; if base already occupies all 8 characters,
// the final character is replaced by the digit instead.
func continuationQNAM(base string, n int) string {
	digit := strconv.Itoa(n)
	if len(digit) > 1 {
		digit = digit[len(digit)-1:]
	}
	if len(base) < 8 {
		return base + digit
	}
	return base[:7] + digit
}
