package supp

import (
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// ColumnConfig is the user-authored per-residual-column configuration.
// QLABEL/QORIG/QEVAL are supplied by the
// user; Action lets the user force a residual column in or out regardless
// of the default selection heuristics.
type ColumnConfig struct {
	QLabel string
	QOrig  string
	QEval  string
	Action Action
}

// Action is the closed set of dispositions a user may assign to a residual
// column.
type Action string

const (
	ActionPending Action = "pending"
	ActionInclude Action = "include"
	ActionSkip    Action = "skip"
)

var suppColumns = []string{
	"STUDYID", "RDOMAIN", "USUBJID", "IDVAR", "IDVARVAL",
	"QNAM", "QLABEL", "QVAL", "QORIG", "QEVAL",
}

// Build extracts every residual source column into SUPP-- records for one
// parent domain. usedSourceColumns is the mapping engine's consumed-column
// set; configs holds any user overrides, keyed by source column name.
// maxLen is the per-SDTMIG-4.5.3.2 long-value split threshold;
// a value <= 0 falls back to DefaultMaxLength.
// Returns the SUPP-- frame (named per DatasetName) and the set of source
// column names it consumed.
func Build(domain vartype.Domain, studyID string, source, parent frame.Frame, usedSourceColumns map[string]bool, configs map[string]ColumnConfig, maxLen int) (frame.Frame, map[string]bool) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	residual := selectResidualColumns(domain, source, parent, usedSourceColumns, configs)
	if len(residual) == 0 {
		return frame.New(DatasetName(domain.Code), nil, nil), map[string]bool{}
	}

	rows := source.Rows()
	if parent.Rows() < rows {
		rows = parent.Rows()
	}

	idvar := ""
	if seqVar, ok := domain.SeqVariable(); ok && parent.Has(seqVar.Name) {
		idvar = seqVar.Name
	}

	qnames := newQNAMAllocator()
	seen := make(map[string]bool) // dedup key
	consumed := make(map[string]bool)

	data := make(map[string][]string, len(suppColumns))
	for _, c := range suppColumns {
		data[c] = nil
	}

	for row := 0; row < rows; row++ {
		studyIDValue := parent.Cell("STUDYID", row)
		if studyIDValue == "" {
			studyIDValue = studyID
		}
		usubjid := parent.Cell("USUBJID", row)
		idvarval := ""
		if idvar != "" {
			idvarval = parent.Cell(idvar, row)
		}

		for _, col := range residual {
			raw := source.CellTrimmed(col, row)
			if raw == "" {
				continue
			}
			cfg := configs[col]
			base := qnames.Allocate(col)
			qlabel := cfg.QLabel
			if qlabel == "" {
				qlabel = defaultQLabel(col)
			}
			qorig := cfg.QOrig
			if qorig == "" {
				qorig = "CRF"
			}

			parts := SplitLongValue(raw, maxLen)
			for i, part := range parts {
				qnam := base
				if i > 0 {
					qnam = continuationQNAM(base, i)
				}
				key := studyIDValue + "|" + domain.Code + "|" + usubjid + "|" + idvar + "|" + idvarval + "|" + qnam
				if seen[key] {
					continue
				}
				seen[key] = true
				consumed[col] = true

				appendRow(data, studyIDValue, domain.Code, usubjid, idvar, idvarval, qnam, qlabel, part, qorig, cfg.QEval)
			}
		}
	}

	return frame.New(DatasetName(domain.Code), suppColumns, data), consumed
}

func appendRow(data map[string][]string, studyID, rdomain, usubjid, idvar, idvarval, qnam, qlabel, qval, qorig, qeval string) {
	data["STUDYID"] = append(data["STUDYID"], studyID)
	data["RDOMAIN"] = append(data["RDOMAIN"], rdomain)
	data["USUBJID"] = append(data["USUBJID"], usubjid)
	data["IDVAR"] = append(data["IDVAR"], idvar)
	data["IDVARVAL"] = append(data["IDVARVAL"], idvarval)
	data["QNAM"] = append(data["QNAM"], qnam)
	data["QLABEL"] = append(data["QLABEL"], qlabel)
	data["QVAL"] = append(data["QVAL"], qval)
	data["QORIG"] = append(data["QORIG"], qorig)
	data["QEVAL"] = append(data["QEVAL"], qeval)
}

func defaultQLabel(sourceColumn string) string {
	label := strings.TrimSpace(sourceColumn)
	if len(label) > 40 {
		label = label[:40]
	}
	return label
}

// selectResidualColumns picks the columns eligible for SUPP: skip
// consumed columns, skip anything matching a parent standard variable name,
// skip duplicates of a populated mapped column, skip user-skipped columns,
// then drop any remaining *CD column that duplicates another *surviving*
// residual column with a matching populated base name.
func selectResidualColumns(domain vartype.Domain, source, parent frame.Frame, usedSourceColumns map[string]bool, configs map[string]ColumnConfig) []string {
	coreVariables := make(map[string]bool, len(domain.Variables))
	for _, v := range domain.Variables {
		coreVariables[strings.ToUpper(v.Name)] = true
	}
	populated := populatedColumns(parent)

	var candidates []string
	for _, col := range source.Columns {
		if usedSourceColumns[col] {
			continue
		}
		if coreVariables[strings.ToUpper(col)] {
			continue
		}
		if isDuplicateOfMapped(col, populated) {
			continue
		}
		if cfg, ok := configs[col]; ok && cfg.Action == ActionSkip {
			continue
		}
		candidates = append(candidates, col)
	}

	residualUpper := make(map[string]string, len(candidates)) // upper -> original
	residualPopulated := make(map[string]bool, len(candidates))
	for _, col := range candidates {
		upper := strings.ToUpper(col)
		residualUpper[upper] = col
		if columnHasValue(source, col) {
			residualPopulated[upper] = true
		}
	}

	var out []string
	for _, col := range candidates {
		upper := strings.ToUpper(col)
		if strings.HasSuffix(upper, "CD") && len(upper) > 2 {
			base := upper[:len(upper)-2]
			if _, ok := residualUpper[base]; ok && residualPopulated[base] {
				continue
			}
		}
		out = append(out, col)
	}
	return out
}

// populatedColumns returns the uppercased names of every parent column that
// holds at least one non-empty value.
func populatedColumns(parent frame.Frame) map[string]bool {
	out := make(map[string]bool)
	for _, col := range parent.Columns {
		if columnHasValue(parent, col) {
			out[strings.ToUpper(col)] = true
		}
	}
	return out
}

func columnHasValue(f frame.Frame, column string) bool {
	for i := 0; i < f.Rows(); i++ {
		if f.CellTrimmed(column, i) != "" {
			return true
		}
	}
	return false
}

// isDuplicateOfMapped is the duplicate-of-mapped heuristic: a
// residual column ending in SEQ when the parent already has a populated
// *SEQ, ending in CD of a populated base, or ending in DATE/DAT/DT of a
// populated *DTC.
func isDuplicateOfMapped(name string, populated map[string]bool) bool {
	if len(populated) == 0 {
		return false
	}
	upper := strings.ToUpper(name)
	if strings.HasSuffix(upper, "SEQ") {
		for col := range populated {
			if strings.HasSuffix(col, "SEQ") {
				return true
			}
		}
	}
	if strings.HasSuffix(upper, "CD") && len(upper) > 2 {
		base := upper[:len(upper)-2]
		if populated[base] {
			return true
		}
	}
	for _, suffix := range []string{"DATE", "DAT", "DT"} {
		if prefix, ok := strings.CutSuffix(upper, suffix); ok {
			if populated[prefix+"DTC"] {
				return true
			}
		}
	}
	return false
}
