package relationships

import (
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

var relspecColumns = []string{"STUDYID", "USUBJID", "REFID", "SPEC", "PARENT", "LEVEL"}

type relspecKey struct {
	usubjid string
	refid   string
}

type relspecRecord struct {
	spec   string
	parent string
}

// BuildRELSPEC aggregates, for every domain carrying a --REFID style
// variable, by (USUBJID, REFID) into one record per key carrying SPEC,
// PARENT and a constant LEVEL of 1. The first non-empty
// SPEC/PARENT value encountered for a key wins; later rows never
// overwrite it.
func BuildRELSPEC(domains []DomainFrame, standards map[string]vartype.Domain, studyID string) frame.Frame {
	records := make(map[relspecKey]*relspecRecord)
	var order []relspecKey

	for _, df := range domains {
		std, ok := standards[strings.ToUpper(df.DomainCode)]
		if !ok || !df.Frame.Has("USUBJID") {
			continue
		}
		specVar, hasSpec := specVariable(std, df.Frame)
		parentVar, hasParent := parentVariable(std, df.Frame)
		refidVars := findRefidColumns(std, df.Frame)
		if len(refidVars) == 0 {
			continue
		}

		for _, refidVar := range refidVars {
			for row := 0; row < df.Frame.Rows(); row++ {
				usubjid := df.Frame.CellTrimmed("USUBJID", row)
				refid := df.Frame.CellTrimmed(refidVar, row)
				if usubjid == "" || refid == "" {
					continue
				}
				key := relspecKey{usubjid: usubjid, refid: refid}
				rec, exists := records[key]
				if !exists {
					rec = &relspecRecord{}
					records[key] = rec
					order = append(order, key)
				}
				if rec.spec == "" && hasSpec {
					if v := df.Frame.CellTrimmed(specVar, row); v != "" {
						rec.spec = v
					}
				}
				if rec.parent == "" && hasParent {
					if v := df.Frame.CellTrimmed(parentVar, row); v != "" {
						rec.parent = v
					}
				}
			}
		}
	}

	data := make(map[string][]string, len(relspecColumns))
	for _, key := range order {
		rec := records[key]
		data["STUDYID"] = append(data["STUDYID"], studyID)
		data["USUBJID"] = append(data["USUBJID"], key.usubjid)
		data["REFID"] = append(data["REFID"], key.refid)
		data["SPEC"] = append(data["SPEC"], rec.spec)
		data["PARENT"] = append(data["PARENT"], rec.parent)
		data["LEVEL"] = append(data["LEVEL"], "1")
	}
	return frame.New("RELSPEC", relspecColumns, data)
}

func specVariable(domain vartype.Domain, f frame.Frame) (string, bool) {
	return findExactSuffixColumn(domain, f, "SPEC")
}

func parentVariable(domain vartype.Domain, f frame.Frame) (string, bool) {
	return findExactSuffixColumn(domain, f, "PARENT")
}

func findExactSuffixColumn(domain vartype.Domain, f frame.Frame, suffix string) (string, bool) {
	for _, v := range domain.Variables {
		if strings.HasSuffix(strings.ToUpper(v.Name), suffix) && f.Has(v.Name) {
			return v.Name, true
		}
	}
	return "", false
}

func findRefidColumns(domain vartype.Domain, f frame.Frame) []string {
	var out []string
	for _, v := range domain.Variables {
		if strings.HasSuffix(strings.ToUpper(v.Name), "REFID") && f.Has(v.Name) {
			out = append(out, v.Name)
		}
	}
	return out
}
