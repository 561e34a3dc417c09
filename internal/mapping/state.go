package mapping

// Accepted is one accepted (source column, confidence) pairing for a target
// variable.
type Accepted struct {
	SourceColumn string
	Confidence   float64
}

// State is the per-domain, user-authored mapping state. Build one with
// NewState: the zero value has nil maps, so Accept, MarkOmitted and
// MarkNotCollected panic on it. State is single-writer (the
// user); downstream stages snapshot it before use rather than holding a live
// reference.
type State struct {
	accepted     map[string]Accepted // target variable -> accepted source
	omitted      map[string]bool     // target variable -> user marked omitted
	notCollected map[string]bool     // target variable -> user marked not collected
}

// NewState returns an empty mapping state.
func NewState() *State {
	return &State{
		accepted:     make(map[string]Accepted),
		omitted:      make(map[string]bool),
		notCollected: make(map[string]bool),
	}
}

// Accept records that sourceColumn maps to targetVariable with the given
// confidence. A source column already accepted for a different target is
// released from that target first, preserving the invariant that a source
// column is accepted for at most one target at a time.
func (s *State) Accept(targetVariable, sourceColumn string, confidence float64) {
	for target, acc := range s.accepted {
		if acc.SourceColumn == sourceColumn && target != targetVariable {
			delete(s.accepted, target)
		}
	}
	s.accepted[targetVariable] = Accepted{SourceColumn: sourceColumn, Confidence: confidence}
	delete(s.omitted, targetVariable)
	delete(s.notCollected, targetVariable)
}

// Unaccept removes any acceptance for a target variable.
func (s *State) Unaccept(targetVariable string) {
	delete(s.accepted, targetVariable)
}

// MarkOmitted flags a target variable as user-omitted.
func (s *State) MarkOmitted(targetVariable string) {
	delete(s.accepted, targetVariable)
	s.omitted[targetVariable] = true
	delete(s.notCollected, targetVariable)
}

// MarkNotCollected flags a target variable as validly left empty.
func (s *State) MarkNotCollected(targetVariable string) {
	delete(s.accepted, targetVariable)
	s.notCollected[targetVariable] = true
	delete(s.omitted, targetVariable)
}

// Lookup returns the accepted source column for a target variable, if any.
func (s *State) Lookup(targetVariable string) (Accepted, bool) {
	a, ok := s.accepted[targetVariable]
	return a, ok
}

// IsOmitted reports whether the user has marked a target variable omitted.
func (s *State) IsOmitted(targetVariable string) bool { return s.omitted[targetVariable] }

// IsNotCollected reports whether the user has marked a target variable as
// validly not collected.
func (s *State) IsNotCollected(targetVariable string) bool { return s.notCollected[targetVariable] }

// AcceptedSourceColumns returns the set of source columns currently accepted
// for some target, the "consumed" set the SUPP Builder excludes.
func (s *State) AcceptedSourceColumns() map[string]bool {
	out := make(map[string]bool, len(s.accepted))
	for _, a := range s.accepted {
		out[a.SourceColumn] = true
	}
	return out
}

// ResidualColumns returns every column in allColumns not currently accepted
// for any target.
func (s *State) ResidualColumns(allColumns []string) []string {
	consumed := s.AcceptedSourceColumns()
	var residual []string
	for _, c := range allColumns {
		if !consumed[c] {
			residual = append(residual, c)
		}
	}
	return residual
}

// ApplySuggestions seeds State from a mapping Result, accepting every
// suggestion it contains. Existing acceptances for the same target are
// overwritten.
func (s *State) ApplySuggestions(result Result) {
	for _, sug := range result.Suggestions {
		s.Accept(sug.TargetVariable, sug.SourceColumn, sug.Confidence)
	}
}
