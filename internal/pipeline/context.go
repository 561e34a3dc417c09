package pipeline

import (
	"github.com/cdisc-transpiler/sdtmkit/internal/mapping"
	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
)

// CTMode controls how strictly CtNormalization treats an unmatched value.
type CTMode string

const (
	// CTModeLenient passes an unmatched value through unchanged and records a
	// DiagUnmatchedCT diagnostic.
	CTModeLenient CTMode = "lenient"
	// CTModeStrict blanks an unmatched value instead of passing it through,
	// still recording the diagnostic.
	CTModeStrict CTMode = "strict"
)

// ExecutionContext carries everything a Rule needs beyond the source Frame:
// study identity, the accepted mapping state, the terminology registry, and
// the per-subject RFSTDTC reference map StudyDay rules read from.
type ExecutionContext struct {
	StudyID     string
	DomainCode  string
	Mapping     *mapping.State
	Terminology *terminology.Registry
	CTMode      CTMode

	// Omitted is the set of target variables the user has marked omitted;
	// the executor skips generating a column for these entirely.
	Omitted map[string]bool

	// subjectRFSTDTC maps USUBJID -> RFSTDTC, built once per Execute call
	// from the source frame before any StudyDay rule runs.
	subjectRFSTDTC map[string]string
}

// NewExecutionContext builds a context with empty omitted/reference maps.
func NewExecutionContext(studyID, domainCode string, m *mapping.State, reg *terminology.Registry, mode CTMode) *ExecutionContext {
	return &ExecutionContext{
		StudyID:     studyID,
		DomainCode:  domainCode,
		Mapping:     m,
		Terminology: reg,
		CTMode:      mode,
		Omitted:     make(map[string]bool),
	}
}

// ReferenceDate returns the RFSTDTC recorded for a subject, if the per-subject
// map has been built (Execute builds it as its first pass).
func (c *ExecutionContext) ReferenceDate(usubjid string) (string, bool) {
	v, ok := c.subjectRFSTDTC[usubjid]
	return v, ok && v != ""
}
