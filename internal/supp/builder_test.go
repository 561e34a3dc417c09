package supp

import (
	"strings"
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func aeDomain() vartype.Domain {
	return vartype.Domain{
		Code: "AE",
		Variables: []vartype.Variable{
			{Name: "STUDYID"},
			{Name: "DOMAIN"},
			{Name: "USUBJID"},
			{Name: "AESEQ"},
			{Name: "AETERM"},
			{Name: "AESTDTC"},
		},
	}
}

// TestBuild_LongTextSplit: a 420-character
// MHTERM-style residual value splits into a parent part and numbered
// continuation QNAMs sharing one QLABEL.
func TestBuild_LongTextSplit(t *testing.T) {
	long := strings.Repeat("word ", 84) // 420 chars
	source := frame.New("AE", []string{"USUBJID", "AESEQ", "COMMENT"}, map[string][]string{
		"USUBJID": {"S-001"},
		"AESEQ":   {"1"},
		"COMMENT": {long},
	})
	parent := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"S-001"},
		"AESEQ":   {"1"},
	})

	out, consumed := Build(aeDomain(), "CDISC01", source, parent, map[string]bool{}, nil, 0)
	if !consumed["COMMENT"] {
		t.Fatal("expected COMMENT to be consumed")
	}
	if out.Rows() < 2 {
		t.Fatalf("expected a multi-part split, got %d rows", out.Rows())
	}
	qnams := out.Column("QNAM")
	if qnams[0] != "COMMENT" {
		t.Errorf("first part QNAM = %q, want COMMENT", qnams[0])
	}
	for i := 1; i < len(qnams); i++ {
		want := continuationQNAM("COMMENT", i)
		if qnams[i] != want {
			t.Errorf("part %d QNAM = %q, want %q", i, qnams[i], want)
		}
	}
	label0 := out.Column("QLABEL")[0]
	for i, l := range out.Column("QLABEL") {
		if l != label0 {
			t.Errorf("part %d QLABEL = %q, want consistent %q", i, l, label0)
		}
	}
	rebuiltRaw := strings.Join(out.Column("QVAL"), " ")
	rebuilt := strings.Join(strings.Fields(rebuiltRaw), " ")
	collapsedInput := strings.Join(strings.Fields(long), " ")
	if rebuilt != collapsedInput {
		t.Errorf("rebuilt value does not match input modulo whitespace collapsing:\ngot:  %q\nwant: %q", rebuilt, collapsedInput)
	}
}

// TestBuild_EightCharQNAMExtension: a base QNAM
// already 8 characters gets digit-suffixed continuations.
func TestBuild_EightCharQNAMExtension(t *testing.T) {
	long := strings.Repeat("x", 700)
	source := frame.New("AE", []string{"USUBJID", "AEACNOTH"}, map[string][]string{
		"USUBJID":  {"S-001"},
		"AEACNOTH": {long},
	})
	parent := frame.New("AE", []string{"STUDYID", "USUBJID"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"S-001"},
	})

	out, _ := Build(aeDomain(), "CDISC01", source, parent, map[string]bool{}, nil, 0)
	qnams := out.Column("QNAM")
	want := []string{"AEACNOTH", "AEACNOT1", "AEACNOT2", "AEACNOT3"}
	if len(qnams) != len(want) {
		t.Fatalf("got %d parts, want %d", len(qnams), len(want))
	}
	for i, w := range want {
		if qnams[i] != w {
			t.Errorf("part %d QNAM = %q, want %q", i, qnams[i], w)
		}
	}
}

func TestBuild_SkipsConsumedAndCoreColumns(t *testing.T) {
	source := frame.New("AE", []string{"USUBJID", "SUBJID", "AETERM", "NOTES"}, map[string][]string{
		"USUBJID": {"S-001"},
		"SUBJID":  {"001"},
		"AETERM":  {"Headache"},
		"NOTES":   {"extra info"},
	})
	parent := frame.New("AE", []string{"STUDYID", "USUBJID"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"S-001"},
	})

	out, consumed := Build(aeDomain(), "CDISC01", source, parent, map[string]bool{"SUBJID": true}, nil, 0)
	if consumed["SUBJID"] || consumed["AETERM"] {
		t.Error("SUBJID (consumed) and AETERM (core variable) should never reach SUPP")
	}
	if !consumed["NOTES"] {
		t.Error("NOTES should be extracted into SUPP")
	}
	if out.Rows() != 1 {
		t.Fatalf("expected exactly 1 SUPP row, got %d", out.Rows())
	}
}

func TestBuild_DuplicateOfPopulatedDTCIsExcluded(t *testing.T) {
	source := frame.New("AE", []string{"USUBJID", "AESTDATE"}, map[string][]string{
		"USUBJID":  {"S-001"},
		"AESTDATE": {"2020-01-10"},
	})
	parent := frame.New("AE", []string{"STUDYID", "USUBJID", "AESTDTC"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"S-001"},
		"AESTDTC": {"2020-01-10"},
	})

	out, consumed := Build(aeDomain(), "CDISC01", source, parent, map[string]bool{}, nil, 0)
	if consumed["AESTDATE"] {
		t.Error("AESTDATE duplicates the populated AESTDTC and should be excluded")
	}
	if out.Rows() != 0 {
		t.Errorf("expected no SUPP rows, got %d", out.Rows())
	}
}

func TestBuild_Dedup(t *testing.T) {
	source := frame.New("AE", []string{"USUBJID", "AESEQ", "NOTES"}, map[string][]string{
		"USUBJID": {"S-001", "S-001"},
		"AESEQ":   {"1", "1"}, // same subject/seq twice
		"NOTES":   {"same note", "same note"},
	})
	parent := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ"}, map[string][]string{
		"STUDYID": {"CDISC01", "CDISC01"},
		"USUBJID": {"S-001", "S-001"},
		"AESEQ":   {"1", "1"},
	})

	out, _ := Build(aeDomain(), "CDISC01", source, parent, map[string]bool{}, nil, 0)
	if out.Rows() != 1 {
		t.Errorf("expected duplicate (STUDYID|RDOMAIN|USUBJID|IDVAR|IDVARVAL|QNAM) tuples to collapse to 1 row, got %d", out.Rows())
	}
}
