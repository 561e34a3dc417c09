package vartype

import "strings"

// Domain is a named dataset shape in SDTM.
type Domain struct {
	Code        string
	DatasetName string     // override; defaults to Code when empty
	Class       Class
	Label       string
	Structure   string
	Variables   []Variable // ordered by declared ordinal position
}

// ResolvedDatasetName returns DatasetName if set, else Code.
func (d Domain) ResolvedDatasetName() string {
	if d.DatasetName != "" {
		return d.DatasetName
	}
	return d.Code
}

// HasUSUBJID reports whether the domain declares a USUBJID variable. Every
// non-reference domain must have one.
func (d Domain) HasUSUBJID() bool {
	_, ok := d.Variable("USUBJID")
	return ok
}

// Variable looks up a variable by name (case-insensitive, SDTM names are
// ASCII uppercase by convention but callers may pass through unsanitized
// sponsor-adjacent text).
func (d Domain) Variable(name string) (Variable, bool) {
	upper := strings.ToUpper(name)
	for _, v := range d.Variables {
		if strings.ToUpper(v.Name) == upper {
			return v, true
		}
	}
	return Variable{}, false
}

// SeqVariable returns the domain's --SEQ variable, if any.
func (d Domain) SeqVariable() (Variable, bool) {
	for _, v := range d.Variables {
		if strings.HasSuffix(v.Name, "SEQ") {
			return v, true
		}
	}
	return Variable{}, false
}

// CheckInvariants validates the structural invariants required of
// a loaded Domain.
func (d Domain) CheckInvariants() error {
	if len(d.Code) == 0 || len(d.Code) > 8 {
		return &InvariantError{Domain: d.Code, Reason: "domain code must be 1-8 characters"}
	}
	if d.Class != ClassStudyReference && d.Class != ClassTrialDesign && !d.HasUSUBJID() {
		return &InvariantError{Domain: d.Code, Reason: "non-reference domain missing USUBJID"}
	}
	return nil
}

// InvariantError reports a violated Domain/Variable invariant.
type InvariantError struct {
	Domain string
	Reason string
}

func (e *InvariantError) Error() string {
	return "vartype: domain " + e.Domain + ": " + e.Reason
}
