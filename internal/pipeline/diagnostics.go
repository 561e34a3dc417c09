package pipeline

import "fmt"

// DiagnosticKind classifies a per-value executor diagnostic. These are never
// raised as errors: the offending cell becomes empty/null (unparseable dates
// and durations, and unmatched CT values in lenient mode, pass through
// unchanged instead) and the pipeline continues.
type DiagnosticKind string

const (
	DiagUnmatchedCT       DiagnosticKind = "unmatched_ct"
	DiagUnparseableDate   DiagnosticKind = "unparseable_date"
	DiagUnparseableNumber DiagnosticKind = "unparseable_number"
	DiagMissingColumn     DiagnosticKind = "missing_column"
	DiagNoUSUBJIDForSeq   DiagnosticKind = "no_usubjid_for_seq"
	DiagNoReferenceDate   DiagnosticKind = "no_reference_date"
)

// Diagnostic is one per-value or per-rule note the executor produces
// alongside its output frame.
type Diagnostic struct {
	Kind     DiagnosticKind
	Variable string
	Row      int // -1 when not row-scoped
	Sample   string
	Message  string
}

// Error is the typed error set the executor can return for structural
// failures that prevent a rule from running at all.
type Error struct {
	Kind     string // "ColumnNotFound", "FrameShapeError", "ParseError"
	Variable string
	Column   string
	Sample   string
}

func (e *Error) Error() string {
	switch e.Kind {
	case "ColumnNotFound":
		return fmt.Sprintf("pipeline: column not found: %s", e.Column)
	case "FrameShapeError":
		return fmt.Sprintf("pipeline: frame shape error for variable %s", e.Variable)
	case "ParseError":
		return fmt.Sprintf("pipeline: parse error for variable %s: sample %q", e.Variable, e.Sample)
	default:
		return "pipeline: executor error"
	}
}
