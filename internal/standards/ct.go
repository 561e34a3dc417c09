package standards

import (
	"strconv"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// parseCTCatalog parses one CT package CSV into a terminology.Catalog.
// Rows are grouped by "codelist row" (blank Codelist Code, Code is the
// codelist's own NCI code — sets extensibility) vs "term row" (Codelist Code
// populated).
func parseCTCatalog(file ManifestFile, raw []byte) (terminology.Catalog, error) {
	records, err := readCSVRecords(raw)
	if err != nil {
		return terminology.Catalog{}, err
	}

	type building struct {
		name       string
		extensible bool
		terms      []vartype.Term
	}
	byCode := make(map[string]*building)
	var order []string

	for _, rec := range records {
		code := rec["Code"]
		codelistCode := rec["Codelist Code"]
		if code == "" {
			continue
		}

		if codelistCode == "" {
			// Codelist row: this record's own Code IS the codelist code.
			b, ok := byCode[code]
			if !ok {
				b = &building{}
				byCode[code] = b
				order = append(order, code)
			}
			b.name = rec["CDISC Submission Value"]
			if b.name == "" {
				b.name = rec["NCI Preferred Term"]
			}
			b.extensible = parseExtensible(rec["Codelist Extensible"])
			continue
		}

		// Term row: attaches to codelistCode.
		b, ok := byCode[codelistCode]
		if !ok {
			b = &building{}
			byCode[codelistCode] = b
			order = append(order, codelistCode)
		}
		b.terms = append(b.terms, vartype.Term{
			Code:            code,
			SubmissionValue: rec["CDISC Submission Value"],
			Synonyms:        splitSynonyms(rec["CDISC Synonym(s)"]),
			Definition:      rec["CDISC Definition"],
			PreferredTerm:   rec["NCI Preferred Term"],
		})
	}

	codelists := make(map[string]*vartype.Codelist, len(byCode))
	for _, code := range order {
		b := byCode[code]
		codelists[code] = vartype.NewCodelist(code, b.name, b.extensible, b.terms)
	}

	label, publishingSet, version := catalogIdentity(file)
	return terminology.Catalog{
		PublishingSet: publishingSet,
		Version:       version,
		Label:         label,
		Codelists:     codelists,
	}, nil
}

// catalogIdentity derives a catalog's label/publishing-set/version from its
// manifest role, of the form "ct_<set>_<version>" (e.g. "ct_sdtm_2024-03-29").
func catalogIdentity(file ManifestFile) (label, publishingSet, version string) {
	rest := strings.TrimPrefix(file.Role, "ct_")
	parts := strings.SplitN(rest, "_", 2)
	set := "SDTM"
	ver := rest
	if len(parts) == 2 {
		set = strings.ToUpper(parts[0])
		ver = parts[1]
	}
	return set + " CT", set, ver
}

func parseExtensible(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "y", "true", "1":
		return true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n != 0
	}
	return false
}

func splitSynonyms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
