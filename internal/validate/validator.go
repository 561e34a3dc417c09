package validate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/pipeline"
	"github.com/cdisc-transpiler/sdtmkit/internal/terminology"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// DefaultSampleCap bounds how many offending sample values a single Issue
// collects before it stops appending.
const DefaultSampleCap = 10

// Config carries the per-call knobs the validator needs beyond the frame
// and domain definition itself.
type Config struct {
	SampleCap    int
	NotCollected map[string]bool // target variables the user marked not collected
	Terminology  *terminology.Registry
}

func (c Config) sampleCap() int {
	if c.SampleCap > 0 {
		return c.SampleCap
	}
	return DefaultSampleCap
}

// Validate runs every check against a normalized frame and
// returns Issues sorted Reject > Error > Warning, then by
// (rule_id, variable, first_sample).
func Validate(domain vartype.Domain, f frame.Frame, cfg Config) []Issue {
	var issues []Issue

	for _, v := range domain.Variables {
		issues = append(issues, checkRequiredMissing(domain, v, f)...)
		issues = append(issues, checkRequiredEmpty(domain, v, f)...)
		issues = append(issues, checkExpectedMissing(domain, v, f, cfg)...)
		issues = append(issues, checkIdentifierNull(domain, v, f)...)
		issues = append(issues, checkInvalidDate(domain, v, f, cfg)...)
		issues = append(issues, checkTextTooLong(domain, v, f)...)
		issues = append(issues, checkDataTypeMismatch(domain, v, f, cfg)...)
		issues = append(issues, checkCtViolation(domain, v, f, cfg)...)
	}
	issues = append(issues, checkDuplicateSequence(domain, f)...)

	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := severityRank[issues[i].Severity], severityRank[issues[j].Severity]
		if ri != rj {
			return ri < rj
		}
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		if issues[i].Variable != issues[j].Variable {
			return issues[i].Variable < issues[j].Variable
		}
		return issues[i].FirstSample < issues[j].FirstSample
	})
	return issues
}

func checkRequiredMissing(domain vartype.Domain, v vartype.Variable, f frame.Frame) []Issue {
	if v.CoreDesignation != vartype.Required {
		return nil
	}
	if f.Has(v.Name) {
		return nil
	}
	return []Issue{{
		Rule: RuleRequiredMissing, Severity: SeverityError,
		Domain: domain.Code, Variable: v.Name,
		Message: "required variable " + v.Name + " is absent from the frame",
	}}
}

func checkRequiredEmpty(domain vartype.Domain, v vartype.Variable, f frame.Frame) []Issue {
	if v.CoreDesignation != vartype.Required || !f.Has(v.Name) {
		return nil
	}
	nullCount := 0
	for i := 0; i < f.Rows(); i++ {
		if f.CellTrimmed(v.Name, i) == "" {
			nullCount++
		}
	}
	if nullCount == 0 {
		return nil
	}
	return []Issue{{
		Rule: RuleRequiredEmpty, Severity: SeverityError,
		Domain: domain.Code, Variable: v.Name,
		NullCount: nullCount,
		Message:   v.Name + " has " + strconv.Itoa(nullCount) + " empty required value(s)",
	}}
}

func checkExpectedMissing(domain vartype.Domain, v vartype.Variable, f frame.Frame, cfg Config) []Issue {
	if v.CoreDesignation != vartype.Expected {
		return nil
	}
	if f.Has(v.Name) {
		return nil
	}
	if cfg.NotCollected[v.Name] {
		return nil
	}
	return []Issue{{
		Rule: RuleExpectedMissing, Severity: SeverityWarning,
		Domain: domain.Code, Variable: v.Name,
		Message: "expected variable " + v.Name + " is absent from the frame",
	}}
}

func checkIdentifierNull(domain vartype.Domain, v vartype.Variable, f frame.Frame) []Issue {
	if v.Role != vartype.RoleIdentifier || !f.Has(v.Name) {
		return nil
	}
	nullCount := 0
	for i := 0; i < f.Rows(); i++ {
		if f.CellTrimmed(v.Name, i) == "" {
			nullCount++
		}
	}
	if nullCount == 0 {
		return nil
	}
	return []Issue{{
		Rule: RuleIdentifierNull, Severity: SeverityError,
		Domain: domain.Code, Variable: v.Name,
		NullCount: nullCount,
		Message:   "identifier " + v.Name + " has " + strconv.Itoa(nullCount) + " empty value(s)",
	}}
}

func checkInvalidDate(domain vartype.Domain, v vartype.Variable, f frame.Frame, cfg Config) []Issue {
	if !strings.Contains(strings.ToUpper(v.DescribedValueDomain), "ISO 8601") || !f.Has(v.Name) {
		return nil
	}
	var samples []string
	limit := cfg.sampleCap()
	for i := 0; i < f.Rows(); i++ {
		value := f.CellTrimmed(v.Name, i)
		if value == "" {
			continue
		}
		if !pipeline.ValidExtendedForm(value) {
			if len(samples) < limit {
				samples = append(samples, value)
			}
		}
	}
	if len(samples) == 0 {
		return nil
	}
	return []Issue{{
		Rule: RuleInvalidDate, Severity: SeverityError,
		Domain: domain.Code, Variable: v.Name,
		Samples: samples, FirstSample: samples[0],
		Message: v.Name + " has values that are not valid ISO 8601 extended-form",
	}}
}

func checkTextTooLong(domain vartype.Domain, v vartype.Variable, f frame.Frame) []Issue {
	if v.DataType != vartype.Character || !f.Has(v.Name) {
		return nil
	}
	maxAllowed := maxAllowedValueLength(domain.Code, v)
	maxFound := 0
	for i := 0; i < f.Rows(); i++ {
		if n := len([]rune(f.CellTrimmed(v.Name, i))); n > maxFound {
			maxFound = n
		}
	}
	if maxFound <= maxAllowed {
		return nil
	}
	return []Issue{{
		Rule: RuleTextTooLong, Severity: SeverityWarning,
		Domain: domain.Code, Variable: v.Name,
		MaxFound: maxFound, MaxAllowed: maxAllowed,
		Message: v.Name + " exceeds its allowed length",
	}}
}

func checkDataTypeMismatch(domain vartype.Domain, v vartype.Variable, f frame.Frame, cfg Config) []Issue {
	if v.DataType != vartype.Numeric || !f.Has(v.Name) {
		return nil
	}
	var samples []string
	limit := cfg.sampleCap()
	for i := 0; i < f.Rows(); i++ {
		value := f.CellTrimmed(v.Name, i)
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			if len(samples) < limit {
				samples = append(samples, value)
			}
		}
	}
	if len(samples) == 0 {
		return nil
	}
	return []Issue{{
		Rule: RuleDataTypeMismatch, Severity: SeverityError,
		Domain: domain.Code, Variable: v.Name,
		Samples: samples, FirstSample: samples[0],
		Message: v.Name + " contains non-numeric values",
	}}
}

func checkCtViolation(domain vartype.Domain, v vartype.Variable, f frame.Frame, cfg Config) []Issue {
	code := v.FirstCodelistCode()
	if code == "" || !f.Has(v.Name) || cfg.Terminology == nil {
		return nil
	}
	cl, ok := cfg.Terminology.Resolve(code, "")
	if !ok {
		return nil
	}
	var invalid []string
	seen := make(map[string]bool)
	limit := cfg.sampleCap()
	for i := 0; i < f.Rows(); i++ {
		value := f.CellTrimmed(v.Name, i)
		if value == "" || seen[value] {
			continue
		}
		if !cl.IsValidSubmissionValue(value) {
			seen[value] = true
			if len(invalid) < limit {
				invalid = append(invalid, value)
			}
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	severity := SeverityError
	if cl.Extensible {
		severity = SeverityWarning
	}
	return []Issue{{
		Rule: RuleCtViolation, Severity: severity,
		Domain: domain.Code, Variable: v.Name,
		InvalidValues: invalid, FirstSample: invalid[0],
		Message: v.Name + " has values outside codelist " + code,
	}}
}

// maxAllowedValueLength returns the character-value length ceiling for v:
// the declared Length when set, else 8 for --TESTCD, else 40
// for --TEST outside the IE/TI/TS exception (200 inside it), else 200.
func maxAllowedValueLength(domainCode string, v vartype.Variable) int {
	if v.Length > 0 {
		return v.Length
	}
	name := strings.ToUpper(v.Name)
	switch {
	case strings.HasSuffix(name, "TESTCD"):
		return 8
	case strings.HasSuffix(name, "TEST"):
		if domainCode == "IE" || domainCode == "TI" || domainCode == "TS" {
			return 200
		}
		return 40
	default:
		return 200
	}
}

// checkDuplicateSequence reports any *SEQ variable with two rows sharing
// (USUBJID, seq). Scoped to the domain rather than a single
// variable since it needs both USUBJID and the SEQ column together.
func checkDuplicateSequence(domain vartype.Domain, f frame.Frame) []Issue {
	seqVar, ok := domain.SeqVariable()
	if !ok || !f.Has(seqVar.Name) || !f.Has("USUBJID") {
		return nil
	}
	seen := make(map[string]bool)
	var dupSamples []string
	for i := 0; i < f.Rows(); i++ {
		usubjid := f.CellTrimmed("USUBJID", i)
		seq := f.CellTrimmed(seqVar.Name, i)
		if usubjid == "" || seq == "" {
			continue
		}
		key := usubjid + "|" + seq
		if seen[key] {
			if len(dupSamples) < DefaultSampleCap {
				dupSamples = append(dupSamples, key)
			}
			continue
		}
		seen[key] = true
	}
	if len(dupSamples) == 0 {
		return nil
	}
	return []Issue{{
		Rule: RuleDuplicateSequence, Severity: SeverityError,
		Domain: domain.Code, Variable: seqVar.Name,
		Samples: dupSamples, FirstSample: dupSamples[0],
		Message: "duplicate (USUBJID, " + seqVar.Name + ") pairs found",
	}}
}

