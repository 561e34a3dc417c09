package pipeline

import (
	"strconv"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
)

// Result is the output of Execute: the normalized Frame plus every
// non-fatal diagnostic the rules raised along the way.
type Result struct {
	Frame       frame.Frame
	Diagnostics []Diagnostic
}

// Execute runs a Pipeline's rules against a source Frame, producing a new
// Frame with exactly one output column per non-omitted rule. Rules run in
// four passes rather than declaration order, because SequenceNumber and
// StudyDay depend on other rules' *output* rather than the source frame
// directly:
//
//  1. every rule except SequenceNumber and StudyDay
//  2. SequenceNumber rules, which read the USUBJID column pass 1 produced
//  3. (internal) build the USUBJID -> RFSTDTC reference map from pass 1's
//     output
//  4. StudyDay rules, which read that reference map
func Execute(p Pipeline, src frame.Frame, ctx *ExecutionContext) (Result, error) {
	b := frame.NewBuilder(p.DomainCode, src.Rows())
	var diags []Diagnostic

	var deferred []Rule
	for _, r := range p.Rules {
		if ctx.Omitted[r.TargetVariable] {
			continue
		}
		if r.Type == SequenceNumber || r.Type == StudyDay {
			deferred = append(deferred, r)
			continue
		}
		col, d, err := execOne(r, src, b, ctx)
		if err != nil {
			return Result{}, err
		}
		b.Set(r.TargetVariable, col)
		diags = append(diags, d...)
	}

	for _, r := range deferred {
		if r.Type != SequenceNumber {
			continue
		}
		col, d, err := execOne(r, src, b, ctx)
		if err != nil {
			return Result{}, err
		}
		b.Set(r.TargetVariable, col)
		diags = append(diags, d...)
	}

	ctx.subjectRFSTDTC = buildSubjectReferenceMap(b)

	for _, r := range deferred {
		if r.Type != StudyDay {
			continue
		}
		col, d, err := execOne(r, src, b, ctx)
		if err != nil {
			return Result{}, err
		}
		b.Set(r.TargetVariable, col)
		diags = append(diags, d...)
	}

	return Result{Frame: b.Build(), Diagnostics: diags}, nil
}

// buildSubjectReferenceMap reads whatever USUBJID/RFSTDTC columns the prior
// passes produced. A subject's first non-empty RFSTDTC wins; later rows
// never overwrite it, matching a dataset where RFSTDTC is constant per
// subject by construction.
func buildSubjectReferenceMap(b *frame.Builder) map[string]string {
	built := b.Build()
	out := make(map[string]string)
	if !built.Has("USUBJID") || !built.Has("RFSTDTC") {
		return out
	}
	for row := 0; row < built.Rows(); row++ {
		usubjid := built.Cell("USUBJID", row)
		if usubjid == "" {
			continue
		}
		if _, exists := out[usubjid]; exists {
			continue
		}
		if rfstdtc := built.Cell("RFSTDTC", row); rfstdtc != "" {
			out[usubjid] = rfstdtc
		}
	}
	return out
}

func execOne(r Rule, src frame.Frame, b *frame.Builder, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	switch r.Type {
	case Constant:
		return execConstant(r, src, ctx), nil, nil
	case UsubjidPrefix:
		return execUsubjidPrefix(r, src, ctx)
	case CopyDirect:
		return execCopyDirect(r, src, ctx)
	case CtNormalization:
		return execCtNormalization(r, src, ctx)
	case Iso8601Date:
		return execIso8601Date(r, src, ctx)
	case Iso8601DateTime:
		return execIso8601DateTime(r, src, ctx)
	case Iso8601Duration:
		return execIso8601Duration(r, src, ctx)
	case NumericConversion:
		return execNumericConversion(r, src, ctx)
	case SequenceNumber:
		return execSequenceNumber(r, b)
	case StudyDay:
		return execStudyDay(r, b, ctx)
	default:
		return nil, nil, &Error{Kind: "FrameShapeError", Variable: r.TargetVariable}
	}
}

func sourceColumnFor(r Rule, ctx *ExecutionContext) (string, bool) {
	if r.SourceColumn != "" {
		return r.SourceColumn, true
	}
	acc, ok := ctx.Mapping.Lookup(r.TargetVariable)
	if !ok {
		return "", false
	}
	return acc.SourceColumn, true
}

func execConstant(r Rule, src frame.Frame, ctx *ExecutionContext) []string {
	var value string
	switch strings.ToUpper(r.TargetVariable) {
	case "STUDYID":
		value = ctx.StudyID
	case "DOMAIN":
		value = ctx.DomainCode
	}
	out := make([]string, src.Rows())
	for i := range out {
		out[i] = value
	}
	return out
}

func execUsubjidPrefix(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	col, ok := sourceColumnFor(r, ctx)
	if !ok {
		// The subject identifier may have been mapped under SUBJID rather
		// than USUBJID; either acceptance feeds the prefix rule.
		if acc, found := ctx.Mapping.Lookup("SUBJID"); found {
			col, ok = acc.SourceColumn, true
		}
	}
	if !ok {
		return nil, nil, &Error{Kind: "ColumnNotFound", Variable: r.TargetVariable}
	}
	if !src.Has(col) {
		return nil, nil, &Error{Kind: "ColumnNotFound", Variable: r.TargetVariable, Column: col}
	}
	prefix := ctx.StudyID + "-"
	out := make([]string, src.Rows())
	for i := range out {
		v := src.CellTrimmed(col, i)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, prefix) {
			out[i] = v
			continue
		}
		out[i] = prefix + v
	}
	return out, nil, nil
}

func execCopyDirect(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	col, ok := sourceColumnFor(r, ctx)
	if !ok || !src.Has(col) {
		return make([]string, src.Rows()), nil, nil
	}
	out := make([]string, src.Rows())
	for i := range out {
		out[i] = src.CellTrimmed(col, i)
	}
	return out, nil, nil
}

func execCtNormalization(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	col, ok := sourceColumnFor(r, ctx)
	if !ok || !src.Has(col) {
		return make([]string, src.Rows()), nil, nil
	}
	cl, found := ctx.Terminology.Resolve(r.CodelistCode, "")
	out := make([]string, src.Rows())
	var diags []Diagnostic
	for i := range out {
		raw := src.CellTrimmed(col, i)
		if raw == "" {
			continue
		}
		if !found {
			out[i] = raw
			diags = append(diags, Diagnostic{Kind: DiagUnmatchedCT, Variable: r.TargetVariable, Row: i, Sample: raw, Message: "codelist " + r.CodelistCode + " not loaded"})
			continue
		}
		if sv, ok := cl.FindSubmissionValue(raw); ok {
			out[i] = sv
			continue
		}
		diags = append(diags, Diagnostic{Kind: DiagUnmatchedCT, Variable: r.TargetVariable, Row: i, Sample: raw})
		if ctx.CTMode == CTModeStrict {
			out[i] = ""
		} else {
			out[i] = raw
		}
	}
	return out, diags, nil
}

func execIso8601Date(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	return execIso8601(r, src, ctx, DiagUnparseableDate, normalizeISO8601Date)
}

func execIso8601DateTime(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	return execIso8601(r, src, ctx, DiagUnparseableDate, normalizeISO8601DateTime)
}

func execIso8601Duration(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	return execIso8601(r, src, ctx, DiagUnparseableDate, normalizeISO8601Duration)
}

func execIso8601(r Rule, src frame.Frame, ctx *ExecutionContext, kind DiagnosticKind, normalize func(string) (string, bool)) ([]string, []Diagnostic, error) {
	col, ok := sourceColumnFor(r, ctx)
	if !ok || !src.Has(col) {
		return make([]string, src.Rows()), nil, nil
	}
	out := make([]string, src.Rows())
	var diags []Diagnostic
	for i := range out {
		raw := src.CellTrimmed(col, i)
		if raw == "" {
			continue
		}
		norm, ok := normalize(raw)
		if !ok {
			diags = append(diags, Diagnostic{Kind: kind, Variable: r.TargetVariable, Row: i, Sample: raw})
			out[i] = raw
			continue
		}
		out[i] = norm
	}
	return out, diags, nil
}

func execNumericConversion(r Rule, src frame.Frame, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	col, ok := sourceColumnFor(r, ctx)
	if !ok || !src.Has(col) {
		return make([]string, src.Rows()), nil, nil
	}
	out := make([]string, src.Rows())
	var diags []Diagnostic
	for i := range out {
		raw := src.CellTrimmed(col, i)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			diags = append(diags, Diagnostic{Kind: DiagUnparseableNumber, Variable: r.TargetVariable, Row: i, Sample: raw})
			continue
		}
		out[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return out, diags, nil
}

// execSequenceNumber assigns a 1-based per-subject sequence derived from
// row order within the already-built USUBJID column. When no USUBJID column
// exists, the sequence runs 1..N across the whole frame and a diagnostic
// records the degraded numbering.
func execSequenceNumber(r Rule, b *frame.Builder) ([]string, []Diagnostic, error) {
	built := b.Build()
	out := make([]string, built.Rows())
	if !built.Has("USUBJID") {
		for i := range out {
			out[i] = strconv.Itoa(i + 1)
		}
		return out, []Diagnostic{{
			Kind:     DiagNoUSUBJIDForSeq,
			Variable: r.TargetVariable,
			Row:      -1,
			Message:  "no USUBJID column; sequence numbered across the whole frame",
		}}, nil
	}
	counters := make(map[string]int)
	for i := 0; i < built.Rows(); i++ {
		usubjid := built.Cell("USUBJID", i)
		if usubjid == "" {
			continue
		}
		counters[usubjid]++
		out[i] = strconv.Itoa(counters[usubjid])
	}
	return out, nil, nil
}

// execStudyDay computes SDTM study day: diff+1 for dates on/after RFSTDTC,
// diff (no day-zero skip) for dates before it.
func execStudyDay(r Rule, b *frame.Builder, ctx *ExecutionContext) ([]string, []Diagnostic, error) {
	built := b.Build()
	if !built.Has("USUBJID") || !built.Has(r.ReferenceDTC) {
		return make([]string, built.Rows()), nil, nil
	}
	out := make([]string, built.Rows())
	var diags []Diagnostic
	for i := 0; i < built.Rows(); i++ {
		usubjid := built.Cell("USUBJID", i)
		eventDTC := built.Cell(r.ReferenceDTC, i)
		if usubjid == "" || eventDTC == "" {
			continue
		}
		ref, ok := ctx.ReferenceDate(usubjid)
		if !ok {
			ref = built.Cell("RFSTDTC", i)
		}
		if ref == "" {
			diags = append(diags, Diagnostic{Kind: DiagNoReferenceDate, Variable: r.TargetVariable, Row: i, Sample: usubjid})
			continue
		}
		eventTime, ok1 := parseISO8601DateOrDateTimeToTime(eventDTC)
		refTime, ok2 := parseISO8601DateOrDateTimeToTime(ref)
		if !ok1 || !ok2 {
			diags = append(diags, Diagnostic{Kind: DiagUnparseableDate, Variable: r.TargetVariable, Row: i, Sample: eventDTC})
			continue
		}
		diff := int(eventTime.Sub(refTime).Hours() / 24)
		if diff >= 0 {
			diff++
		}
		out[i] = strconv.Itoa(diff)
	}
	return out, diags, nil
}
