package relationships

import (
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func TestBuildRELSPEC_AggregatesByUsubjidAndRefid(t *testing.T) {
	mh := frame.New("MH", []string{"USUBJID", "MHREFID", "MHSPEC", "MHPARENT"}, map[string][]string{
		"USUBJID":  {"S-001", "S-001"},
		"MHREFID":  {"REF1", "REF1"},
		"MHSPEC":   {"", "Aspirin"},
		"MHPARENT": {"DM", ""},
	})
	domains := []DomainFrame{{DomainCode: "MH", Frame: mh}}
	standards := map[string]vartype.Domain{
		"MH": {Code: "MH", Variables: []vartype.Variable{
			{Name: "USUBJID"}, {Name: "MHREFID"}, {Name: "MHSPEC"}, {Name: "MHPARENT"},
		}},
	}

	out := BuildRELSPEC(domains, standards, "CDISC01")
	if out.Rows() != 1 {
		t.Fatalf("expected 1 aggregated RELSPEC row, got %d", out.Rows())
	}
	if got := out.Cell("SPEC", 0); got != "Aspirin" {
		t.Errorf("SPEC = %q, want Aspirin (first non-empty value wins)", got)
	}
	if got := out.Cell("PARENT", 0); got != "DM" {
		t.Errorf("PARENT = %q, want DM", got)
	}
	if got := out.Cell("LEVEL", 0); got != "1" {
		t.Errorf("LEVEL = %q, want 1", got)
	}
}

func TestBuildRELSPEC_SkipsDomainsWithoutRefid(t *testing.T) {
	ae := frame.New("AE", []string{"USUBJID", "AETERM"}, map[string][]string{
		"USUBJID": {"S-001"},
		"AETERM":  {"Headache"},
	})
	domains := []DomainFrame{{DomainCode: "AE", Frame: ae}}
	standards := map[string]vartype.Domain{
		"AE": {Code: "AE", Variables: []vartype.Variable{{Name: "USUBJID"}, {Name: "AETERM"}}},
	}
	out := BuildRELSPEC(domains, standards, "CDISC01")
	if out.Rows() != 0 {
		t.Errorf("expected no RELSPEC rows without a REFID variable, got %d", out.Rows())
	}
}
