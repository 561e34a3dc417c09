package vartype

import "strings"

// Term is a single controlled-terminology entry within a Codelist.
// Submission value is the only value legal for submission; synonyms are
// mapping aids only and must never be returned by a submission-value lookup.
type Term struct {
	Code            string // NCI concept code
	SubmissionValue string
	Synonyms        []string
	Definition      string
	PreferredTerm   string
}

// Codelist is a single controlled vocabulary identified by an NCI code.
type Codelist struct {
	Code       string
	Name       string
	Extensible bool
	Terms      []Term

	bySubmission map[string]Term // upper-case key
	bySynonym    map[string]Term // upper-case key
}

// NewCodelist builds a Codelist and its two lookup indexes from a term list.
// Synonyms never override a submission-value match: if a synonym's
// upper-cased text collides with another term's submission value, the
// submission-value index wins and the synonym entry is simply not indexed
// for that key.
func NewCodelist(code, name string, extensible bool, terms []Term) *Codelist {
	cl := &Codelist{
		Code:         code,
		Name:         name,
		Extensible:   extensible,
		Terms:        terms,
		bySubmission: make(map[string]Term, len(terms)),
		bySynonym:    make(map[string]Term, len(terms)*2),
	}
	for _, t := range terms {
		cl.bySubmission[strings.ToUpper(t.SubmissionValue)] = t
	}
	for _, t := range terms {
		for _, syn := range t.Synonyms {
			key := strings.ToUpper(syn)
			if _, collides := cl.bySubmission[key]; collides {
				continue
			}
			cl.bySynonym[key] = t
		}
	}
	return cl
}

// IsValidSubmissionValue reports whether value is a legal submission value
// for this codelist (case-insensitive). Used by the Validator — never
// resolves through synonyms.
func (c *Codelist) IsValidSubmissionValue(value string) bool {
	_, ok := c.bySubmission[strings.ToUpper(value)]
	return ok
}

// FindSubmissionValue resolves value to its canonical submission value via,
// in order: exact submission-value match, synonym match, compact-key
// submission match, compact-key synonym match.
// Compact keys strip all non-alphanumeric characters. Returns ("", false)
// when nothing matches.
func (c *Codelist) FindSubmissionValue(value string) (string, bool) {
	upper := strings.ToUpper(value)
	if t, ok := c.bySubmission[upper]; ok {
		return t.SubmissionValue, true
	}
	if t, ok := c.bySynonym[upper]; ok {
		return t.SubmissionValue, true
	}
	compact := compactKey(value)
	if compact == "" {
		return "", false
	}
	for key, t := range c.bySubmission {
		if compactKey(key) == compact {
			return t.SubmissionValue, true
		}
	}
	for key, t := range c.bySynonym {
		if compactKey(key) == compact {
			return t.SubmissionValue, true
		}
	}
	return "", false
}

// TermByCode looks up a term by its NCI concept code.
func (c *Codelist) TermByCode(code string) (Term, bool) {
	for _, t := range c.Terms {
		if t.Code == code {
			return t, true
		}
	}
	return Term{}, false
}

func compactKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
