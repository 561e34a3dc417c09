package standards

import (
	"sort"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// Conflict records one field that differed between the SDTM baseline and its
// SDTMIG refinement for a given variable.
type Conflict struct {
	Domain   string
	Variable string
	Field    string // "label", "type", "role", "required"
	SDTM     string
	SDTMIG   string
}

// Summary counts what VerifyAndLoad loaded, returned alongside the
// Registry.
type Summary struct {
	DatasetCount  int
	VariableCount int
	CodelistCount int
	ConflictCount int
}

// Registry is the read-only, indexed view of loaded SDTM/SDTMIG metadata and
// controlled terminology. Constructed once by VerifyAndLoad; every field is
// safe for concurrent read-only access thereafter.
type Registry struct {
	Domains     map[string]vartype.Domain // keyed by domain code
	Terminology *terminology.Registry
	Conflicts   []Conflict
}

// Domain looks up a merged domain definition by code.
func (r *Registry) Domain(code string) (vartype.Domain, bool) {
	d, ok := r.Domains[strings.ToUpper(code)]
	return d, ok
}

// VerifyAndLoad verifies every
// manifest-declared file's digest, parses the SDTM/SDTMIG CSVs, applies the
// merge policy, and returns an indexed Registry plus a load Summary. CT
// package files referenced under any "ct_" role prefix are parsed and added
// to the Terminology Registry under a catalog label derived from the role.
func VerifyAndLoad(dir string) (*Registry, Summary, error) {
	doc, err := parseManifest(dir)
	if err != nil {
		return nil, Summary{}, err
	}

	sdtmDatasetsFile, _ := fileByRole(doc, RoleSDTMDatasets)
	sdtmVarsFile, _ := fileByRole(doc, RoleSDTMVariables)
	sdtmigDatasetsFile, _ := fileByRole(doc, RoleSDTMIGDatasets)
	sdtmigVarsFile, _ := fileByRole(doc, RoleSDTMIGVariables)

	// Roles whose content isn't part of the domain/variable/CT index but
	// whose presence and digest must still be verified (conformance rules,
	// Define-XML stylesheets).
	for _, role := range []Role{RoleConformanceRulesCatalog, RoleDefineXSL21, RoleDefineXSL20} {
		f, _ := fileByRole(doc, role)
		if _, err := verifyAndRead(dir, f); err != nil {
			return nil, Summary{}, err
		}
	}

	sdtmDatasetsRaw, err := verifyAndRead(dir, sdtmDatasetsFile)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmVarsRaw, err := verifyAndRead(dir, sdtmVarsFile)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmigDatasetsRaw, err := verifyAndRead(dir, sdtmigDatasetsFile)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmigVarsRaw, err := verifyAndRead(dir, sdtmigVarsFile)
	if err != nil {
		return nil, Summary{}, err
	}

	sdtmDatasets, err := parseDatasets(sdtmDatasetsRaw)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmigDatasets, err := parseDatasets(sdtmigDatasetsRaw)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmVars, err := parseVariables(sdtmVarsRaw)
	if err != nil {
		return nil, Summary{}, err
	}
	sdtmigVars, err := parseVariables(sdtmigVarsRaw)
	if err != nil {
		return nil, Summary{}, err
	}

	domains, conflicts := mergeDomains(sdtmDatasets, sdtmigDatasets, sdtmVars, sdtmigVars)

	termReg := terminology.NewRegistry()
	codelistCount := 0
	for _, ctRole := range ctRolesOf(doc) {
		raw, err := verifyAndRead(dir, ctRole)
		if err != nil {
			return nil, Summary{}, err
		}
		cat, err := parseCTCatalog(ctRole, raw)
		if err != nil {
			return nil, Summary{}, err
		}
		codelistCount += len(cat.Codelists)
		termReg.Add(cat)
	}

	domainCount := 0
	variableCount := 0
	for _, d := range domains {
		domainCount++
		variableCount += len(d.Variables)
	}

	return &Registry{
			Domains:     domains,
			Terminology: termReg,
			Conflicts:   conflicts,
		}, Summary{
			DatasetCount:  domainCount,
			VariableCount: variableCount,
			CodelistCount: codelistCount,
			ConflictCount: len(conflicts),
		}, nil
}

func ctRolesOf(doc manifestDoc) []ManifestFile {
	return filesByRolePrefix(doc, "ct_")
}

// mergeDomains merges the two standards layers: SDTM baseline first;
// SDTMIG overlays non-empty class/label/structure (dataset) or
// label/type/role/core (variable) fields, tagging the merged record's source
// and recording a Conflict for every differing field.
func mergeDomains(sdtmDatasets, sdtmigDatasets []datasetRow, sdtmVars, sdtmigVars []variableRow) (map[string]vartype.Domain, []Conflict) {
	domains := make(map[string]vartype.Domain)

	for _, d := range sdtmDatasets {
		code := strings.ToUpper(d.Domain)
		domains[code] = vartype.Domain{
			Code:        d.Domain,
			DatasetName: d.DatasetName,
			Class:       toClass(d.Class),
			Label:       d.Label,
			Structure:   d.Structure,
		}
	}
	for _, d := range sdtmigDatasets {
		code := strings.ToUpper(d.Domain)
		base, existed := domains[code]
		if !existed {
			base = vartype.Domain{Code: d.Domain}
		}
		merged := base
		changed := false
		if d.Class != "" {
			merged.Class = toClass(d.Class)
			changed = true
		}
		if d.Label != "" {
			merged.Label = d.Label
			changed = true
		}
		if d.Structure != "" {
			merged.Structure = d.Structure
			changed = true
		}
		if d.DatasetName != "" {
			merged.DatasetName = d.DatasetName
		}
		if changed || !existed {
			domains[code] = merged
		}
	}

	type varKey struct {
		domain string
		name   string
	}
	baseline := make(map[varKey]variableRow)
	for _, v := range sdtmVars {
		baseline[varKey{strings.ToUpper(v.Domain), strings.ToUpper(v.Name)}] = v
	}

	var conflicts []Conflict
	merged := make(map[varKey]vartype.Variable)
	order := make(map[varKey]int)
	ordinal := 0

	addMerged := func(key varKey, v vartype.Variable) {
		if _, exists := merged[key]; !exists {
			order[key] = ordinal
			ordinal++
		}
		merged[key] = v
	}

	for _, v := range sdtmVars {
		key := varKey{strings.ToUpper(v.Domain), strings.ToUpper(v.Name)}
		addMerged(key, vartype.Variable{
			Domain:               v.Domain,
			Name:                 v.Name,
			Label:                v.Label,
			DataType:             toDataType(v.Type),
			Length:               v.Length,
			Role:                 toRole(v.Role),
			CoreDesignation:      toCore(v.Core),
			CodelistCodes:        splitCodelistCodes(v.CodelistCode),
			DescribedValueDomain: v.DescribedValueDomain,
			Ordinal:              v.Ordinal,
			Source:               "sdtm",
		})
	}

	for _, v := range sdtmigVars {
		key := varKey{strings.ToUpper(v.Domain), strings.ToUpper(v.Name)}
		base, existed := baseline[key]
		current := merged[key]
		if !existed {
			current = vartype.Variable{Domain: v.Domain, Name: v.Name, Ordinal: v.Ordinal}
		}

		if v.Label != "" {
			if existed && base.Label != v.Label {
				conflicts = append(conflicts, Conflict{Domain: v.Domain, Variable: v.Name, Field: "label", SDTM: base.Label, SDTMIG: v.Label})
			}
			current.Label = v.Label
		}
		if v.Type != "" {
			dt := toDataType(v.Type)
			if existed && toDataType(base.Type) != dt {
				conflicts = append(conflicts, Conflict{Domain: v.Domain, Variable: v.Name, Field: "type", SDTM: base.Type, SDTMIG: v.Type})
			}
			current.DataType = dt
		}
		if v.Role != "" {
			role := toRole(v.Role)
			if existed && toRole(base.Role) != role {
				conflicts = append(conflicts, Conflict{Domain: v.Domain, Variable: v.Name, Field: "role", SDTM: base.Role, SDTMIG: v.Role})
			}
			current.Role = role
		}
		if v.Core != "" {
			core := toCore(v.Core)
			if existed && toCore(base.Core) != core {
				conflicts = append(conflicts, Conflict{Domain: v.Domain, Variable: v.Name, Field: "required", SDTM: base.Core, SDTMIG: v.Core})
			}
			current.CoreDesignation = core
		}
		if v.Length != 0 {
			current.Length = v.Length
		}
		if v.CodelistCode != "" {
			current.CodelistCodes = splitCodelistCodes(v.CodelistCode)
		}
		if v.DescribedValueDomain != "" {
			current.DescribedValueDomain = v.DescribedValueDomain
		}
		if v.Ordinal != 0 {
			current.Ordinal = v.Ordinal
		}
		current.Source = "merged"
		addMerged(key, current)
	}

	keys := make([]varKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, vj := merged[keys[i]], merged[keys[j]]
		if vi.Ordinal != vj.Ordinal {
			return vi.Ordinal < vj.Ordinal
		}
		return order[keys[i]] < order[keys[j]]
	})

	for _, key := range keys {
		d, ok := domains[key.domain]
		if !ok {
			d = vartype.Domain{Code: key.domain}
		}
		d.Variables = append(d.Variables, merged[key])
		domains[key.domain] = d
	}

	return domains, conflicts
}
