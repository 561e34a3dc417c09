package definexml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// Options configures one Generate call.
type Options struct {
	StudyOID         string // e.g. "STDY.MYSTUDY01"
	StudyName        string
	StudyDescription string
	ProtocolName     string
	SDTMIGVersion    string // e.g. "3.4"
	Context          string // def:Context, e.g. "Submission"
	CreationDateTime string // caller supplies; this package never reads the clock
}

// ExportedDataset bundles a merged domain definition with the frame actually
// written to transport, so Generate can compute has-data/observed-length
// facts the standards metadata alone doesn't carry.
type ExportedDataset struct {
	Domain vartype.Domain
	Data   frame.Frame
}

// resolvedStudyOID returns opts.StudyOID, or the fallback convention
// "STDY.{studyid}" derived from ProtocolName if unset.
func (o Options) resolvedStudyOID() string {
	if o.StudyOID != "" {
		return o.StudyOID
	}
	return "STDY." + sanitizeOID(o.ProtocolName)
}

func sanitizeOID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Generate builds the Define-XML ODM document for one export session.
// datasets must be in the order they should
// appear in the document; Generate does not reorder domains.
func Generate(opts Options, datasets []ExportedDataset, term *terminology.Registry) *ODM {
	studyOID := opts.resolvedStudyOID()
	mdvOID := studyOID + ".Define-XML_" + opts.SDTMIGVersion

	mdv := MetaDataVersion{
		OID:          mdvOID,
		Name:         "Submission Metadata",
		Description:  fmt.Sprintf("SDTM-IG %s", opts.SDTMIGVersion),
		DefDefineVer: defVersion,
	}

	usedCodes := make(map[string]bool)
	itemDefSeen := make(map[string]bool)

	for _, ed := range datasets {
		igd := buildItemGroupDef(studyOID, ed)
		mdv.ItemGroupDefs = append(mdv.ItemGroupDefs, igd)

		for _, v := range ed.Domain.Variables {
			itemOID := itemOIDFor(ed.Domain, v)
			if itemDefSeen[itemOID] {
				continue
			}
			itemDefSeen[itemOID] = true

			itemDef := buildItemDef(ed, v)
			if code := v.FirstCodelistCode(); code != "" {
				itemDef.CodeListRef = &CodeListRef{CodeListOID: codelistOID(ed.Domain.Code, v.Name)}
				usedCodes[code] = true
			}
			mdv.ItemDefs = append(mdv.ItemDefs, itemDef)
		}
	}

	mdv.CodeLists = buildCodeLists(datasets, term)
	mdv.Standards = buildStandards(term, usedCodes)

	return &ODM{
		Xmlns:               odmNS,
		XmlnsDef:            defNS,
		XmlnsXlink:          xlinkNS,
		FileType:            "Snapshot",
		FileOID:             mdvOID,
		ODMVersion:          odmVersion,
		CreationDateTime:    opts.CreationDateTime,
		Originator:          originator,
		SourceSystem:        originator,
		SourceSystemVersion: "1.0",
		DefContext:          opts.Context,
		Study: Study{
			OID: studyOID,
			GlobalVariables: GlobalVariables{
				StudyName:        opts.StudyName,
				StudyDescription: opts.StudyDescription,
				ProtocolName:     opts.ProtocolName,
			},
			MetaDataVersion: mdv,
		},
	}
}

// buildItemGroupDef emits the ItemGroupDef for one dataset, role-ordering its
// ItemRefs and assigning KeySequence to identifier-role variables in that
// order.
func buildItemGroupDef(studyOID string, ed ExportedDataset) ItemGroupDef {
	d := ed.Domain
	sasName := d.ResolvedDatasetName()
	if len(sasName) > 8 {
		sasName = sasName[:8]
	}

	ordered := roleOrdered(d.Variables)
	igd := ItemGroupDef{
		OID:            "IG." + d.Code,
		Name:           d.Code,
		Repeating:      "Yes",
		Domain:         d.Code,
		SASDatasetName: sasName,
		DefLabel:       d.Label,
		DefClass:       string(d.Class),
		DefStructure:   d.Structure,
	}
	if d.Class.IsReferenceData() {
		igd.DefIsReferenceData = "Yes"
	}

	keySeq := 0
	for i, v := range ordered {
		ref := ItemRef{
			ItemOID:     itemOIDFor(d, v),
			OrderNumber: fmt.Sprintf("%d", i+1),
			Mandatory:   mandatoryFlag(v.CoreDesignation),
		}
		if v.Role == vartype.RoleIdentifier {
			keySeq++
			ref.KeySequence = fmt.Sprintf("%d", keySeq)
		}
		igd.ItemRefs = append(igd.ItemRefs, ref)
	}
	return igd
}

// roleOrdered returns vars sorted by SDTM role precedence, stable within a
// role. Identifier first so KeySequence assignment lines up
// with submission convention (USUBJID etc. before topic/timing/qualifiers).
func roleOrdered(vars []vartype.Variable) []vartype.Variable {
	precedence := map[vartype.Role]int{
		vartype.RoleIdentifier: 0,
		vartype.RoleTopic:      1,
		vartype.RoleGrouping:   2,
		vartype.RoleQualifier:  3,
		vartype.RoleRule:       4,
		vartype.RoleTiming:     5,
		vartype.RoleUnknown:    6,
	}
	out := append([]vartype.Variable(nil), vars...)
	sort.SliceStable(out, func(i, j int) bool {
		return precedence[out[i].Role] < precedence[out[j].Role]
	})
	return out
}

func mandatoryFlag(core vartype.Core) string {
	if core == vartype.Required {
		return "Yes"
	}
	return "No"
}

// buildItemDef computes DataType, Length, and def:Origin for one variable
// against the frame actually exported.
func buildItemDef(ed ExportedDataset, v vartype.Variable) ItemDef {
	dataType := "text"
	length := v.Length
	if v.DataType == vartype.Numeric {
		dataType = "float"
		length = 8
	} else if length <= 0 {
		length = observedLength(ed.Data, v.Name)
	}

	item := ItemDef{
		OID:      itemOIDFor(ed.Domain, v),
		Name:     v.Name,
		DataType: dataType,
		Length:   fmt.Sprintf("%d", length),
		Origin:   Origin{Type: originOf(ed.Data, v)},
	}
	if v.Label != "" {
		item.Description = &Description{TranslatedText{Lang: "en", Text: v.Label}}
	}
	return item
}

// observedLength returns the maximum trimmed cell width observed in column,
// floored at 1. buildItemDef calls it only when no length is declared.
func observedLength(f frame.Frame, column string) int {
	max := 1
	if !f.Has(column) {
		return max
	}
	col := f.Column(column)
	for i := range col {
		if n := len(f.CellTrimmed(column, i)); n > max {
			max = n
		}
	}
	return max
}

// originOf derives def:Origin ∈ {Collected, Derived, Not Collected} from
// (has-data, core=expected). A column with any non-empty
// cell is Collected; an empty or absent expected column is Not Collected;
// any other column without data, absent or all-empty, is Derived.
func originOf(f frame.Frame, v vartype.Variable) string {
	hasData := false
	if f.Has(v.Name) {
		col := f.Column(v.Name)
		for i := range col {
			if f.CellTrimmed(v.Name, i) != "" {
				hasData = true
				break
			}
		}
	}
	switch {
	case hasData:
		return "Collected"
	case v.CoreDesignation == vartype.Expected:
		return "Not Collected"
	default:
		return "Derived"
	}
}

// buildCodeLists merges each referenced codelist's terms into a single
// submission-value-only CodeList, decoded with the preferred term when
// available. Synonyms never appear here.
func buildCodeLists(datasets []ExportedDataset, term *terminology.Registry) []CodeList {
	seen := make(map[string]bool)
	var out []CodeList
	for _, ed := range datasets {
		for _, v := range ed.Domain.Variables {
			code := v.FirstCodelistCode()
			if code == "" {
				continue
			}
			oid := codelistOID(ed.Domain.Code, v.Name)
			if seen[oid] {
				continue
			}
			seen[oid] = true

			cl, ok := term.Resolve(code, "")
			if !ok {
				continue
			}
			entry := CodeList{
				OID:      oid,
				Name:     cl.Name,
				DataType: dataTypeTag(v.DataType),
			}
			if cl.Extensible {
				entry.DefExtensible = "Yes"
			} else {
				entry.DefExtensible = "No"
			}
			for _, t := range dedupedTerms(cl.Terms) {
				decodeText := t.PreferredTerm
				if decodeText == "" {
					decodeText = t.SubmissionValue
				}
				entry.Items = append(entry.Items, CodeListItem{
					CodedValue: t.SubmissionValue,
					Decode:     Description{TranslatedText{Lang: "en", Text: decodeText}},
				})
			}
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID < out[j].OID })
	return out
}

func dedupedTerms(terms []vartype.Term) []vartype.Term {
	seen := make(map[string]bool, len(terms))
	var out []vartype.Term
	for _, t := range terms {
		if seen[t.SubmissionValue] {
			continue
		}
		seen[t.SubmissionValue] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionValue < out[j].SubmissionValue })
	return out
}

func dataTypeTag(dt vartype.DataType) string {
	if dt == vartype.Numeric {
		return "float"
	}
	return "text"
}

// buildStandards enumerates the CT catalogs actually used, keyed by
// usedCodes.
func buildStandards(term *terminology.Registry, usedCodes map[string]bool) *StandardsList {
	cats := term.UsedCatalogs(usedCodes)
	if len(cats) == 0 {
		return nil
	}
	list := &StandardsList{}
	for _, cat := range cats {
		list.Standards = append(list.Standards, Standard{
			OID:           cat.OID(),
			Name:          cat.Label,
			Type:          "CT",
			PublishingSet: cat.PublishingSet,
			Version:       cat.Version,
			Status:        "Final",
		})
	}
	return list
}

// itemOIDFor returns the Define-XML OID for one domain variable.
func itemOIDFor(d vartype.Domain, v vartype.Variable) string {
	return "IT." + d.Code + "." + v.Name
}

// codelistOID returns the Define-XML OID for a variable's merged codelist.
func codelistOID(domainCode, variableName string) string {
	return "CL." + domainCode + "." + variableName
}
