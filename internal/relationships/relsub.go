package relationships

import (
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// BuildRELSUB emits one record per row of any domain frame whose required
// (non-STUDYID) RELSUB variables are fully populated in that row, and where
// at least one of USUBJID/POOLID is present. Every RELSUB-declared variable
// is copied from the source domain's frame when a matching column exists;
// STUDYID is defaulted from studyID when the source left it empty.
func BuildRELSUB(domains []DomainFrame, relsubDomain vartype.Domain, studyID string) frame.Frame {
	columns := make([]string, len(relsubDomain.Variables))
	for i, v := range relsubDomain.Variables {
		columns[i] = v.Name
	}

	required := requiredNonStudyIDVariables(relsubDomain)

	data := make(map[string][]string, len(columns))

	for _, df := range domains {
		lookup := caseInsensitiveColumnLookup(df.Frame)

		requiredCols := make([]string, 0, len(required))
		for _, name := range required {
			if col, ok := lookup[strings.ToUpper(name)]; ok {
				requiredCols = append(requiredCols, col)
			}
		}
		if len(requiredCols) != len(required) {
			continue
		}

		usubjidCol, hasUsubjid := lookup["USUBJID"]
		poolidCol, hasPoolid := lookup["POOLID"]

		for row := 0; row < df.Frame.Rows(); row++ {
			missingRequired := false
			for _, col := range requiredCols {
				if df.Frame.CellTrimmed(col, row) == "" {
					missingRequired = true
					break
				}
			}
			if missingRequired {
				continue
			}
			usubjid := ""
			if hasUsubjid {
				usubjid = df.Frame.CellTrimmed(usubjidCol, row)
			}
			poolid := ""
			if hasPoolid {
				poolid = df.Frame.CellTrimmed(poolidCol, row)
			}
			if usubjid == "" && poolid == "" {
				continue
			}

			for _, v := range relsubDomain.Variables {
				value := ""
				if col, ok := lookup[strings.ToUpper(v.Name)]; ok {
					value = df.Frame.CellTrimmed(col, row)
				}
				if strings.EqualFold(v.Name, "STUDYID") && value == "" {
					value = studyID
				}
				data[v.Name] = append(data[v.Name], value)
			}
		}
	}

	return frame.New("RELSUB", columns, data)
}

// requiredNonStudyIDVariables returns the RELSUB domain's Required-core
// variables excluding STUDYID.
func requiredNonStudyIDVariables(relsubDomain vartype.Domain) []string {
	var out []string
	for _, v := range relsubDomain.Variables {
		if v.CoreDesignation != vartype.Required {
			continue
		}
		if strings.EqualFold(v.Name, "STUDYID") {
			continue
		}
		out = append(out, v.Name)
	}
	return out
}

func caseInsensitiveColumnLookup(f frame.Frame) map[string]string {
	out := make(map[string]string, len(f.Columns))
	for _, c := range f.Columns {
		out[strings.ToUpper(c)] = c
	}
	return out
}
