package standards

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// datasetRow is one row of either the SDTM or SDTMIG datasets CSV.
type datasetRow struct {
	Domain      string
	DatasetName string
	Class       string
	Label       string
	Structure   string
}

// variableRow is one row of either the SDTM or SDTMIG variables CSV.
type variableRow struct {
	Domain               string
	Name                 string
	Label                string
	Type                 string
	Length               int
	Role                 string
	Core                 string
	CodelistCode         string
	DescribedValueDomain string
	Ordinal              int
}

func readCSVRecords(raw []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("standards: csv parse: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseDatasets(raw []byte) ([]datasetRow, error) {
	records, err := readCSVRecords(raw)
	if err != nil {
		return nil, err
	}
	out := make([]datasetRow, 0, len(records))
	for _, rec := range records {
		out = append(out, datasetRow{
			Domain:      rec["Domain"],
			DatasetName: rec["Dataset Name"],
			Class:       rec["Class"],
			Label:       rec["Label"],
			Structure:   rec["Structure"],
		})
	}
	return out, nil
}

func parseVariables(raw []byte) ([]variableRow, error) {
	records, err := readCSVRecords(raw)
	if err != nil {
		return nil, err
	}
	out := make([]variableRow, 0, len(records))
	for _, rec := range records {
		length, _ := strconv.Atoi(rec["Length"])
		ordinal, _ := strconv.Atoi(rec["Ordinal"])
		out = append(out, variableRow{
			Domain:               rec["Domain"],
			Name:                 rec["Variable Name"],
			Label:                rec["Variable Label"],
			Type:                 rec["Type"],
			Length:               length,
			Role:                 rec["Role"],
			Core:                 rec["Core"],
			CodelistCode:         rec["Codelist"],
			DescribedValueDomain: rec["Described Value Domain"],
			Ordinal:              ordinal,
		})
	}
	return out, nil
}

func toDataType(s string) vartype.DataType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "num", "float", "integer":
		return vartype.Numeric
	default:
		return vartype.Character
	}
}

func toRole(s string) vartype.Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identifier":
		return vartype.RoleIdentifier
	case "topic":
		return vartype.RoleTopic
	case "timing":
		return vartype.RoleTiming
	case "qualifier", "grouping qualifier", "result qualifier", "synonym qualifier", "record qualifier", "variable qualifier":
		return vartype.RoleQualifier
	case "rule":
		return vartype.RoleRule
	case "grouping":
		return vartype.RoleGrouping
	default:
		return vartype.RoleUnknown
	}
}

func toCore(s string) vartype.Core {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required", "req":
		return vartype.Required
	case "expected", "exp":
		return vartype.Expected
	default:
		return vartype.Permissible
	}
}

func toClass(s string) vartype.Class {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trial design", "trial-design":
		return vartype.ClassTrialDesign
	case "events":
		return vartype.ClassEvents
	case "findings", "findings about":
		return vartype.ClassFindings
	case "interventions":
		return vartype.ClassInterventions
	case "special purpose", "special-purpose":
		return vartype.ClassSpecialPurpose
	case "relationship", "relationships":
		return vartype.ClassRelationships
	case "study reference", "study-reference":
		return vartype.ClassStudyReference
	default:
		return vartype.ClassSpecialPurpose
	}
}

func splitCodelistCodes(s string) []string {
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
