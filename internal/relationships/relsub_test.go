package relationships

import (
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func relsubDomainDef() vartype.Domain {
	return vartype.Domain{
		Code: "RELSUB",
		Variables: []vartype.Variable{
			{Name: "STUDYID", CoreDesignation: vartype.Required},
			{Name: "USUBJID", CoreDesignation: vartype.Required},
			{Name: "POOLID", CoreDesignation: vartype.Permissible},
		},
	}
}

func TestBuildRELSUB_CopiesDeclaredVariables(t *testing.T) {
	pool := frame.New("POOLDEF", []string{"USUBJID", "POOLID"}, map[string][]string{
		"USUBJID": {"S-001"},
		"POOLID":  {"POOL-A"},
	})
	domains := []DomainFrame{{DomainCode: "POOLDEF", Frame: pool}}

	out := BuildRELSUB(domains, relsubDomainDef(), "CDISC01")
	if out.Rows() != 1 {
		t.Fatalf("expected 1 RELSUB row, got %d", out.Rows())
	}
	if got := out.Cell("STUDYID", 0); got != "CDISC01" {
		t.Errorf("STUDYID not defaulted from context, got %q", got)
	}
	if got := out.Cell("USUBJID", 0); got != "S-001" {
		t.Errorf("USUBJID = %q, want S-001", got)
	}
	if got := out.Cell("POOLID", 0); got != "POOL-A" {
		t.Errorf("POOLID = %q, want POOL-A", got)
	}
}

func TestBuildRELSUB_SkipsRowsMissingUsubjidAndPoolid(t *testing.T) {
	pool := frame.New("POOLDEF", []string{"USUBJID", "POOLID"}, map[string][]string{
		"USUBJID": {""},
		"POOLID":  {""},
	})
	domains := []DomainFrame{{DomainCode: "POOLDEF", Frame: pool}}
	out := BuildRELSUB(domains, relsubDomainDef(), "CDISC01")
	if out.Rows() != 0 {
		t.Errorf("expected no RELSUB row without USUBJID or POOLID, got %d", out.Rows())
	}
}
