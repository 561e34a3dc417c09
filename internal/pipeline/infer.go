package pipeline

import (
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// Infer derives a deterministic rule list for a Domain: exactly one rule per
// variable, in the variable's declared ordinal position, by applying
// a fixed inference table (first match wins per variable). The
// inferrer never consults sponsor data.
func Infer(domain vartype.Domain) Pipeline {
	rules := make([]Rule, 0, len(domain.Variables))
	for i, v := range domain.Variables {
		rules = append(rules, inferOne(v, i))
	}
	return Pipeline{DomainCode: domain.Code, Rules: rules}
}

func inferOne(v vartype.Variable, order int) Rule {
	name := strings.ToUpper(v.Name)
	base := Rule{TargetVariable: v.Name, Origin: Derived, Order: order}

	switch {
	case name == "STUDYID" || name == "DOMAIN":
		base.Type = Constant
	case name == "USUBJID":
		base.Type = UsubjidPrefix
	case strings.HasSuffix(name, "SEQ"):
		base.Type = SequenceNumber
	case containsISO8601Duration(v.DescribedValueDomain):
		base.Type = Iso8601Duration
	case containsISO8601DateTime(v.DescribedValueDomain):
		base.Type = Iso8601DateTime
	case containsISO8601(v.DescribedValueDomain):
		base.Type = Iso8601Date
	case strings.HasSuffix(name, "DY"):
		base.Type = StudyDay
		base.ReferenceDTC = strings.TrimSuffix(name, "DY") + "DTC"
	case v.FirstCodelistCode() != "":
		base.Type = CtNormalization
		base.CodelistCode = v.FirstCodelistCode()
	case v.DataType == vartype.Numeric:
		base.Type = NumericConversion
	default:
		base.Type = CopyDirect
	}
	return base
}

func containsISO8601(s string) bool {
	return strings.Contains(strings.ToUpper(s), "ISO 8601")
}

func containsISO8601DateTime(s string) bool {
	u := strings.ToUpper(s)
	return strings.Contains(u, "ISO 8601") && strings.Contains(u, "DATETIME")
}

func containsISO8601Duration(s string) bool {
	u := strings.ToUpper(s)
	return strings.Contains(u, "ISO 8601") && strings.Contains(u, "DURATION")
}
