package validate

import (
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func aeDomain() vartype.Domain {
	return vartype.Domain{
		Code:  "AE",
		Class: vartype.ClassEvents,
		Variables: []vartype.Variable{
			{Name: "STUDYID", DataType: vartype.Character, CoreDesignation: vartype.Required, Role: vartype.RoleIdentifier},
			{Name: "USUBJID", DataType: vartype.Character, CoreDesignation: vartype.Required, Role: vartype.RoleIdentifier},
			{Name: "AESEQ", DataType: vartype.Numeric, CoreDesignation: vartype.Required},
			{Name: "AETERM", DataType: vartype.Character, CoreDesignation: vartype.Required, Length: 10},
			{Name: "AESTDTC", DataType: vartype.Character, CoreDesignation: vartype.Expected, DescribedValueDomain: "ISO 8601 datetime"},
			{Name: "AESEV", DataType: vartype.Character, CoreDesignation: vartype.Permissible, CodelistCodes: []string{"C66769"}},
		},
	}
}

func TestValidate_RequiredMissing(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
	})
	issues := Validate(d, f, Config{})
	found := false
	for _, i := range issues {
		if i.Rule == RuleRequiredMissing && i.Variable == "AETERM" {
			found = true
			if i.Severity != SeverityError {
				t.Errorf("expected RequiredMissing to be an error, got %s", i.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected RequiredMissing issue for absent AETERM, got %+v", issues)
	}
}

func TestValidate_RequiredEmpty(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01", "CDISC01"},
		"USUBJID": {"CDISC01-001", "CDISC01-002"},
		"AESEQ":   {"1", "2"},
		"AETERM":  {"Headache", ""},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleRequiredEmpty && i.Variable == "AETERM" {
			if i.NullCount != 1 {
				t.Errorf("NullCount = %d, want 1", i.NullCount)
			}
			return
		}
	}
	t.Fatalf("expected RequiredEmpty issue for AETERM, got %+v", issues)
}

func TestValidate_ExpectedMissing_SuppressedByNotCollected(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
		"AETERM":  {"Headache"},
	})
	issues := Validate(d, f, Config{})
	found := false
	for _, i := range issues {
		if i.Rule == RuleExpectedMissing && i.Variable == "AESTDTC" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ExpectedMissing issue for absent AESTDTC, got %+v", issues)
	}

	issues = Validate(d, f, Config{NotCollected: map[string]bool{"AESTDTC": true}})
	for _, i := range issues {
		if i.Rule == RuleExpectedMissing {
			t.Fatalf("expected NotCollected to suppress ExpectedMissing, got %+v", i)
		}
	}
}

func TestValidate_IdentifierNull(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {""},
		"AESEQ":   {"1"},
		"AETERM":  {"Headache"},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleIdentifierNull && i.Variable == "USUBJID" {
			return
		}
	}
	t.Fatalf("expected IdentifierNull issue for empty USUBJID, got %+v", issues)
}

func TestValidate_InvalidDate(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM", "AESTDTC"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
		"AETERM":  {"Headache"},
		"AESTDTC": {"01/02/2020"},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleInvalidDate && i.Variable == "AESTDTC" {
			if i.FirstSample != "01/02/2020" {
				t.Errorf("FirstSample = %q, want 01/02/2020", i.FirstSample)
			}
			return
		}
	}
	t.Fatalf("expected InvalidDate issue for non-extended-form AESTDTC, got %+v", issues)
}

func TestValidate_TextTooLong_UsesDeclaredLength(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
		"AETERM":  {"Severe headache lasting three days"},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleTextTooLong && i.Variable == "AETERM" {
			if i.MaxAllowed != 10 {
				t.Errorf("MaxAllowed = %d, want 10 (declared Length)", i.MaxAllowed)
			}
			return
		}
	}
	t.Fatalf("expected TextTooLong issue for AETERM, got %+v", issues)
}

func TestValidate_DataTypeMismatch(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"not-a-number"},
		"AETERM":  {"Headache"},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleDataTypeMismatch && i.Variable == "AESEQ" {
			return
		}
	}
	t.Fatalf("expected DataTypeMismatch issue for AESEQ, got %+v", issues)
}

func TestValidate_DuplicateSequence(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM"}, map[string][]string{
		"STUDYID": {"CDISC01", "CDISC01"},
		"USUBJID": {"CDISC01-001", "CDISC01-001"},
		"AESEQ":   {"1", "1"},
		"AETERM":  {"Headache", "Nausea"},
	})
	issues := Validate(d, f, Config{})
	for _, i := range issues {
		if i.Rule == RuleDuplicateSequence {
			return
		}
	}
	t.Fatalf("expected DuplicateSequence issue, got %+v", issues)
}

func TestValidate_CtViolation_ExtensibleIsWarningNonExtensibleIsError(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AETERM", "AESEV"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
		"AETERM":  {"Headache"},
		"AESEV":   {"KIND OF BAD"},
	})

	reg := terminology.NewRegistry()
	extensible := vartype.NewCodelist("C66769", "Severity", true, []vartype.Term{
		{Code: "1", SubmissionValue: "MILD"},
		{Code: "2", SubmissionValue: "MODERATE"},
		{Code: "3", SubmissionValue: "SEVERE"},
	})
	reg.Add(terminology.Catalog{
		PublishingSet: "SDTM", Version: "2024-03-29", Label: "SDTM CT",
		Codelists: map[string]*vartype.Codelist{"C66769": extensible},
	})

	issues := Validate(d, f, Config{Terminology: reg})
	found := false
	for _, i := range issues {
		if i.Rule == RuleCtViolation && i.Variable == "AESEV" {
			found = true
			if i.Severity != SeverityWarning {
				t.Errorf("expected extensible codelist violation to be Warning, got %s", i.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected CtViolation issue for AESEV, got %+v", issues)
	}

	nonExtensible := vartype.NewCodelist("C66769", "Severity", false, extensible.Terms)
	reg.Add(terminology.Catalog{
		PublishingSet: "SDTM", Version: "2024-03-29", Label: "SDTM CT",
		Codelists: map[string]*vartype.Codelist{"C66769": nonExtensible},
	})
	issues = Validate(d, f, Config{Terminology: reg})
	for _, i := range issues {
		if i.Rule == RuleCtViolation && i.Variable == "AESEV" {
			if i.Severity != SeverityError {
				t.Errorf("expected non-extensible codelist violation to be Error, got %s", i.Severity)
			}
			return
		}
	}
	t.Fatalf("expected CtViolation issue for AESEV on second pass, got %+v", issues)
}

// Running the validator twice over the same frame must produce the same
// issue list, element for element.
func TestValidate_Idempotent(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ", "AESTDTC"}, map[string][]string{
		"STUDYID": {"CDISC01", "CDISC01"},
		"USUBJID": {"CDISC01-001", ""},
		"AESEQ":   {"1", "1"},
		"AESTDTC": {"01/02/2020", "2020-01-10"},
	})
	first := Validate(d, f, Config{})
	second := Validate(d, f, Config{})
	if len(first) != len(second) {
		t.Fatalf("issue counts differ across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Rule != second[i].Rule || first[i].Variable != second[i].Variable ||
			first[i].Severity != second[i].Severity || first[i].Message != second[i].Message {
			t.Errorf("issue %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestValidate_SortOrder_SeverityThenRuleThenVariable(t *testing.T) {
	d := aeDomain()
	f := frame.New("AE", []string{"STUDYID", "USUBJID", "AESEQ"}, map[string][]string{
		"STUDYID": {"CDISC01"},
		"USUBJID": {"CDISC01-001"},
		"AESEQ":   {"1"},
	})
	issues := Validate(d, f, Config{})
	for i := 1; i < len(issues); i++ {
		prevRank := severityRank[issues[i-1].Severity]
		curRank := severityRank[issues[i].Severity]
		if prevRank > curRank {
			t.Fatalf("issues not sorted by severity: %+v before %+v", issues[i-1], issues[i])
		}
		prev, cur := issues[i-1], issues[i]
		if prevRank == curRank && (prev.Rule > cur.Rule || (prev.Rule == cur.Rule && prev.Variable > cur.Variable)) {
			t.Fatalf("issues not sorted by rule then variable within a severity: %+v before %+v", prev, cur)
		}
	}
}
