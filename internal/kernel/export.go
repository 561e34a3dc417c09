package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cdisc-transpiler/sdtmkit/internal/definexml"
	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
	"github.com/cdisc-transpiler/sdtmkit/internal/xport"
)

// ExportOptions configures one Export call.
type ExportOptions struct {
	OutDir       string
	XPORTVersion xport.Version
	DefineXML    definexml.Options
}

// Export writes one .xpt per domain frame in study (even one with no rows),
// one per non-empty SUPP-- and RELREC/RELSPEC/RELSUB frame, plus a single
// define.xml describing all of them. It writes to a temp path and renames into place so a failure
// mid-export leaves no partial files on disk.
func (k *Kernel) Export(study StudyOutput, opts ExportOptions) error {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}

	var exported []definexml.ExportedDataset

	for _, d := range study.Domains {
		domain, ok := k.Standards.Domain(d.DomainCode)
		if !ok {
			return &UnknownDomainError{DomainCode: d.DomainCode}
		}
		if err := k.writeXPT(opts, domain.ResolvedDatasetName(), d.Frame); err != nil {
			return err
		}
		exported = append(exported, definexml.ExportedDataset{Domain: domain, Data: d.Frame})

		if d.Supp.Rows() > 0 {
			suppDomain := suppDomainDef(d.Supp.Domain)
			if err := k.writeXPT(opts, suppDomain.ResolvedDatasetName(), d.Supp); err != nil {
				return err
			}
			exported = append(exported, definexml.ExportedDataset{Domain: suppDomain, Data: d.Supp})
		}
	}

	for _, rel := range []struct {
		code string
		fr   frame.Frame
	}{
		{"RELREC", study.Relationships.RELREC.Frame},
		{"RELSPEC", study.Relationships.RELSPEC.Frame},
		{"RELSUB", study.Relationships.RELSUB.Frame},
	} {
		if rel.fr.Rows() == 0 {
			continue
		}
		domain, ok := k.Standards.Domain(rel.code)
		if !ok {
			domain = relationshipDomainDef(rel.code, rel.fr.Columns)
		}
		if err := k.writeXPT(opts, domain.ResolvedDatasetName(), rel.fr); err != nil {
			return err
		}
		exported = append(exported, definexml.ExportedDataset{Domain: domain, Data: rel.fr})
	}

	doc := definexml.Generate(opts.DefineXML, exported, k.Standards.Terminology)
	out, err := definexml.Marshal(doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(opts.OutDir, "define.xml"), out)
}

// writeXPT converts a frame.Frame to an xport.Dataset and writes it to
// <OutDir>/<name>.xpt via a temp-file rename.
func (k *Kernel) writeXPT(opts ExportOptions, name string, f frame.Frame) error {
	ds := frameToDataset(name, f)
	tmp, err := os.CreateTemp(opts.OutDir, "."+name+"-*.xpt.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := xport.WithOptions(tmp, xport.DefaultWriterOptions().WithVersion(opts.XPORTVersion))
	if err := w.WriteDataset(ds); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	finalPath := filepath.Join(opts.OutDir, name+".xpt")
	return os.Rename(tmpPath, finalPath)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".define-*.xml.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// frameToDataset builds an xport.Dataset from a frame.Frame, inferring each
// column's numeric-ness from whether every non-empty cell parses as a
// number (a frame has no declared type of its own; the pipeline's
// NumericConversion rule already normalized numeric columns to parseable
// text by this point).
func frameToDataset(name string, f frame.Frame) *xport.Dataset {
	columns := make([]xport.Column, len(f.Columns))
	for i, name := range f.Columns {
		if columnIsNumeric(f, name) {
			columns[i] = xport.NumericColumn(name)
		} else {
			columns[i] = xport.CharacterColumn(name, observedColumnWidth(f, name))
		}
	}
	ds := xport.NewDataset(name, columns)
	for row := 0; row < f.Rows(); row++ {
		values := make([]xport.Value, len(columns))
		for i, c := range columns {
			cell := f.CellTrimmed(c.Name, row)
			if c.Numeric {
				if cell == "" {
					values[i] = xport.NumericMissing()
					continue
				}
				n, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					values[i] = xport.NumericMissing()
					continue
				}
				values[i] = xport.NumericValue(n)
			} else {
				values[i] = xport.CharacterValue(cell)
			}
		}
		ds.AddRow(values)
	}
	return ds
}

func columnIsNumeric(f frame.Frame, column string) bool {
	nonEmpty := 0
	numeric := 0
	for row := 0; row < f.Rows(); row++ {
		cell := f.CellTrimmed(column, row)
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			numeric++
		}
	}
	return nonEmpty > 0 && numeric == nonEmpty
}

func observedColumnWidth(f frame.Frame, column string) int {
	width := 1
	for row := 0; row < f.Rows(); row++ {
		if n := len(f.CellTrimmed(column, row)); n > width {
			width = n
		}
	}
	return width
}

// suppDomainDef synthesizes the fixed SUPP-- variable shape for Define-XML.
// Export always uses it for SUPP-- frames; the Standards Registry is not
// consulted for a SUPPQUAL template.
func suppDomainDef(datasetName string) vartype.Domain {
	required := map[string]bool{"STUDYID": true, "RDOMAIN": true, "USUBJID": true, "QNAM": true, "QLABEL": true, "QVAL": true}
	names := []string{"STUDYID", "RDOMAIN", "USUBJID", "IDVAR", "IDVARVAL", "QNAM", "QLABEL", "QVAL", "QORIG", "QEVAL"}
	vars := make([]vartype.Variable, len(names))
	for i, n := range names {
		core := vartype.Permissible
		if required[n] {
			core = vartype.Required
		}
		role := vartype.RoleQualifier
		if n == "STUDYID" || n == "USUBJID" {
			role = vartype.RoleIdentifier
		}
		vars[i] = vartype.Variable{Domain: datasetName, Name: n, Label: n, DataType: vartype.Character, Role: role, CoreDesignation: core, Ordinal: i + 1}
	}
	return vartype.Domain{
		Code:        datasetName,
		DatasetName: datasetName,
		Class:       vartype.ClassRelationships,
		Label:       "Supplemental Qualifiers for " + trimSuppPrefix(datasetName),
		Structure:   "One record per QNAM per USUBJID per IDVAR per IDVARVAL",
		Variables:   vars,
	}
}

func trimSuppPrefix(name string) string {
	for _, prefix := range []string{"SUPP", "SQ"} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return name[len(prefix):]
		}
	}
	return name
}

// relationshipDomainDef synthesizes a minimal vartype.Domain for a RELREC,
// RELSPEC or RELSUB frame when the Standards Registry carries no explicit definition,
// so Define-XML can still describe it.
func relationshipDomainDef(code string, columns []string) vartype.Domain {
	vars := make([]vartype.Variable, len(columns))
	for i, n := range columns {
		role := vartype.RoleQualifier
		if n == "STUDYID" || n == "USUBJID" || n == "RELID" || n == "REFID" {
			role = vartype.RoleIdentifier
		}
		vars[i] = vartype.Variable{Domain: code, Name: n, Label: n, DataType: vartype.Character, Role: role, CoreDesignation: vartype.Expected, Ordinal: i + 1}
	}
	return vartype.Domain{
		Code:        code,
		DatasetName: code,
		Class:       vartype.ClassRelationships,
		Label:       fmt.Sprintf("%s Records", code),
		Structure:   "One record per relationship",
		Variables:   vars,
	}
}
