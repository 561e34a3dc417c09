// Package pipeline derives and executes the ordered transformation rules
// that turn a mapped sponsor frame into a normalized SDTM frame.
package pipeline

// RuleType is the closed set of transform types a Rule may carry.
type RuleType string

const (
	Constant          RuleType = "Constant"
	UsubjidPrefix     RuleType = "UsubjidPrefix"
	SequenceNumber    RuleType = "SequenceNumber"
	CtNormalization   RuleType = "CtNormalization"
	Iso8601DateTime   RuleType = "Iso8601DateTime"
	Iso8601Date       RuleType = "Iso8601Date"
	Iso8601Duration   RuleType = "Iso8601Duration"
	StudyDay          RuleType = "StudyDay"
	NumericConversion RuleType = "NumericConversion"
	CopyDirect        RuleType = "CopyDirect"
)

// Origin distinguishes an inferred rule from one a user has overridden.
// The executor does not dispatch on Origin; it exists for UIs.
type Origin string

const (
	Derived        Origin = "derived"
	UserOverridden Origin = "user-overridden"
)

// Rule is one entry of a Pipeline: a target variable, its transform type,
// and whatever parameters that type needs.
type Rule struct {
	TargetVariable string
	SourceColumn   string // "" when the rule has no single source (Constant, SequenceNumber without USUBJID)
	Type           RuleType
	CodelistCode   string // CtNormalization only
	ReferenceDTC   string // StudyDay only: the --DTC event-date variable this --DY is computed against (e.g. AESTDY -> AESTDTC); RFSTDTC itself always comes from the per-subject reference map
	Origin         Origin
	Order          int
}

// Pipeline is an ordered, study/domain-scoped rule list.
type Pipeline struct {
	DomainCode string
	StudyID    string
	Rules      []Rule
}
