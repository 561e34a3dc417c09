package mapping

import (
	"sort"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// ExplanationComponent is one scoring adjustment applied to a suggestion,
// carrying its numeric contribution and a human-readable reason.
type ExplanationComponent struct {
	Name         string
	Contribution float64
	Reason       string
}

// Suggestion is a scored (source column, target variable) pairing.
type Suggestion struct {
	SourceColumn   string
	TargetVariable string
	Confidence     float64
	Explanation    []ExplanationComponent
}

// Result is the outcome of SuggestAll: accepted suggestions in acceptance
// order, plus the residual source columns nothing was assigned to.
type Result struct {
	Suggestions     []Suggestion
	UnmappedColumns []string
}

// score computes the full scored Suggestion for one (column, variable) pair,
// applying the adjustments in order: label boost, suffix rules,
// type mismatch.
func score(col frame.ColumnHint, v vartype.Variable) Suggestion {
	normCol := normalizeName(col.Name)
	normVar := normalizeName(v.Name)
	base := jaroWinkler(normCol, normVar)

	explanation := []ExplanationComponent{
		{Name: "base_name_similarity", Contribution: base, Reason: "Jaro-Winkler similarity of normalized names"},
	}

	confidence := base

	if col.Label != "" && v.Label != "" {
		labelSim := jaroWinkler(normalizeName(col.Label), normalizeName(v.Label))
		if labelSim >= 0.85 {
			confidence *= 1.10
			explanation = append(explanation, ExplanationComponent{
				Name: "label_boost", Contribution: 1.10,
				Reason: "column and variable labels are highly similar",
			})
		}
	}

	colEndsSeq := endsWith(col.Name, "SEQ")
	varEndsSeq := endsWith(v.Name, "SEQ")
	switch {
	case colEndsSeq && varEndsSeq:
		confidence *= 1.05
		explanation = append(explanation, ExplanationComponent{Name: "suffix_seq_match", Contribution: 1.05, Reason: "both names end in SEQ"})
	case colEndsSeq != varEndsSeq:
		confidence *= 0.60
		explanation = append(explanation, ExplanationComponent{Name: "suffix_seq_mismatch", Contribution: 0.60, Reason: "only one name ends in SEQ"})
	}

	colEndsCD := endsWith(col.Name, "CD")
	varEndsCD := endsWith(v.Name, "CD")
	if colEndsCD && !varEndsCD {
		confidence *= 0.70
		explanation = append(explanation, ExplanationComponent{Name: "suffix_cd_column_only", Contribution: 0.70, Reason: "column ends in CD but variable does not"})
	}
	if varEndsCD && !colEndsCD {
		confidence *= 0.80
		explanation = append(explanation, ExplanationComponent{Name: "suffix_cd_variable_only", Contribution: 0.80, Reason: "variable ends in CD but column does not"})
	}

	varNumericNatured := endsWith(v.Name, "N")
	if varNumericNatured != col.IsNumeric {
		confidence *= 0.85
		explanation = append(explanation, ExplanationComponent{Name: "type_mismatch", Contribution: 0.85, Reason: "numeric-natured name disagrees with observed column type"})
	}

	return Suggestion{
		SourceColumn:   col.Name,
		TargetVariable: v.Name,
		Confidence:     confidence,
		Explanation:    explanation,
	}
}

// SuggestAll scores every (source column, target variable) pair, keeps
// pairs at or above minConfidence, sorts by descending score with a
// deterministic tie-break (variable order, then column order), and greedily
// assigns: a column or variable already assigned is skipped in subsequent
// pairs.
func SuggestAll(columns []frame.ColumnHint, variables []vartype.Variable, minConfidence float64) Result {
	varOrder := make(map[string]int, len(variables))
	for i, v := range variables {
		varOrder[v.Name] = i
	}
	colOrder := make(map[string]int, len(columns))
	for i, c := range columns {
		colOrder[c.Name] = i
	}

	var candidates []Suggestion
	for _, col := range columns {
		for _, v := range variables {
			s := score(col, v)
			if s.Confidence >= minConfidence {
				candidates = append(candidates, s)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		vi, vj := varOrder[candidates[i].TargetVariable], varOrder[candidates[j].TargetVariable]
		if vi != vj {
			return vi < vj
		}
		return colOrder[candidates[i].SourceColumn] < colOrder[candidates[j].SourceColumn]
	})

	assignedCols := make(map[string]bool, len(columns))
	assignedVars := make(map[string]bool, len(variables))
	var accepted []Suggestion
	for _, c := range candidates {
		if assignedCols[c.SourceColumn] || assignedVars[c.TargetVariable] {
			continue
		}
		accepted = append(accepted, c)
		assignedCols[c.SourceColumn] = true
		assignedVars[c.TargetVariable] = true
	}

	var unmapped []string
	for _, col := range columns {
		if !assignedCols[col.Name] {
			unmapped = append(unmapped, col.Name)
		}
	}

	return Result{Suggestions: accepted, UnmappedColumns: unmapped}
}
