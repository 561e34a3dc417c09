package mapping

import (
	"reflect"
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func TestSuggestAll_Deterministic(t *testing.T) {
	columns := []frame.ColumnHint{
		{Name: "SUBJECT"},
		{Name: "AE_START_DATE"},
	}
	variables := []vartype.Variable{
		{Name: "SUBJID"},
		{Name: "AESTDTC"},
	}

	r1 := SuggestAll(columns, variables, 0.5)
	r2 := SuggestAll(columns, variables, 0.5)

	if len(r1.Suggestions) != len(r2.Suggestions) {
		t.Fatalf("non-deterministic suggestion count: %d vs %d", len(r1.Suggestions), len(r2.Suggestions))
	}
	for i := range r1.Suggestions {
		if !reflect.DeepEqual(r1.Suggestions[i], r2.Suggestions[i]) {
			t.Errorf("suggestion %d differs across runs: %+v vs %+v", i, r1.Suggestions[i], r2.Suggestions[i])
		}
	}
}

func TestSuggestAll_GreedyOneToOne(t *testing.T) {
	columns := []frame.ColumnHint{
		{Name: "SUBJID"},
		{Name: "SUBJ_ID"},
	}
	variables := []vartype.Variable{
		{Name: "SUBJID"},
	}

	r := SuggestAll(columns, variables, 0.3)
	assignedVars := make(map[string]bool)
	for _, s := range r.Suggestions {
		if assignedVars[s.TargetVariable] {
			t.Fatalf("variable %s assigned more than once", s.TargetVariable)
		}
		assignedVars[s.TargetVariable] = true
	}
	if len(r.Suggestions) != 1 {
		t.Fatalf("expected exactly 1 accepted suggestion, got %d", len(r.Suggestions))
	}
	if r.Suggestions[0].SourceColumn != "SUBJID" {
		t.Errorf("expected exact name match SUBJID to win, got %s", r.Suggestions[0].SourceColumn)
	}
	if len(r.UnmappedColumns) != 1 || r.UnmappedColumns[0] != "SUBJ_ID" {
		t.Errorf("expected SUBJ_ID to be unmapped, got %v", r.UnmappedColumns)
	}
}

func TestSuggestAll_SeqSuffixBoost(t *testing.T) {
	columns := []frame.ColumnHint{{Name: "AE_SEQ"}}
	variables := []vartype.Variable{{Name: "AESEQ"}}
	r := SuggestAll(columns, variables, 0)
	if len(r.Suggestions) != 1 {
		t.Fatalf("expected a suggestion")
	}
	found := false
	for _, e := range r.Suggestions[0].Explanation {
		if e.Name == "suffix_seq_match" {
			found = true
		}
	}
	if !found {
		t.Error("expected suffix_seq_match explanation component")
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  AE_Start-Date.DTC ": "ae start date dtc",
		"SUBJID":               "subjid",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestState_AcceptEnforcesOneToOne(t *testing.T) {
	s := NewState()
	s.Accept("SUBJID", "COL_A", 0.9)
	s.Accept("USUBJID", "COL_A", 0.95)

	if _, ok := s.Lookup("SUBJID"); ok {
		t.Error("COL_A should have been released from SUBJID once reassigned to USUBJID")
	}
	acc, ok := s.Lookup("USUBJID")
	if !ok || acc.SourceColumn != "COL_A" {
		t.Error("expected USUBJID to hold COL_A")
	}
}

func TestState_ResidualColumns(t *testing.T) {
	s := NewState()
	s.Accept("SUBJID", "COL_A", 0.9)
	residual := s.ResidualColumns([]string{"COL_A", "COL_B", "COL_C"})
	if len(residual) != 2 || residual[0] != "COL_B" || residual[1] != "COL_C" {
		t.Errorf("ResidualColumns = %v, want [COL_B COL_C]", residual)
	}
}
