// Package kernel wires the Standards Registry, Mapping Engine, Pipeline
// Inferrer/Executor, SUPP Builder, Relationship Builder, Validator and
// Exporter into a single straight-line call:
// B -> C -> D -> E -> F -> G -> H against immutable standards, single-
// threaded cooperative per user action.
package kernel

import (
	"log/slog"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/mapping"
	"github.com/cdisc-transpiler/sdtmkit/internal/pipeline"
	"github.com/cdisc-transpiler/sdtmkit/internal/relationships"
	"github.com/cdisc-transpiler/sdtmkit/internal/standards"
	"github.com/cdisc-transpiler/sdtmkit/internal/supp"
	"github.com/cdisc-transpiler/sdtmkit/internal/validate"
)

// MinMappingConfidence is the floor SuggestAll uses to accept a candidate.
// Below this a column is left for the user or the SUPP Builder rather than
// force-assigned.
const MinMappingConfidence = 0.55

// Kernel holds everything read-only across a study: the loaded standards
// and terminology, the process logger, and the behavioral toggles
// Config.Validate already checked.
type Kernel struct {
	Standards *standards.Registry
	Logger    *slog.Logger

	CTMode             pipeline.CTMode
	DisableAutoRelrec  bool
	EnableGrpidLinking bool
	ValidateSampleCap  int
	SuppMaxValueLength int
}

// New builds a Kernel over an already-loaded standards Registry.
func New(reg *standards.Registry, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kernel{
		Standards: reg,
		Logger:    logger,
		CTMode:    pipeline.CTModeLenient,
	}
}

// DomainInput is everything TransformDomain needs for one sponsor source
// table.
type DomainInput struct {
	DomainCode   string
	StudyID      string
	Source       frame.Frame
	Hints        []frame.ColumnHint
	Mapping      *mapping.State  // nil: the kernel derives one via SuggestAll
	SuppConfigs  map[string]supp.ColumnConfig
	NotCollected map[string]bool // target variables the user marked validly not collected
	Omitted      map[string]bool // target variables the user marked omitted entirely
}

// DomainOutput is the fully transformed result for one domain, ready for
// cross-domain relationship building and export.
type DomainOutput struct {
	DomainCode  string
	Frame       frame.Frame
	Supp        frame.Frame
	Mapping     *mapping.State
	Mapped      mapping.Result
	Diagnostics []pipeline.Diagnostic
	Issues      []validate.Issue
}

// TransformDomain runs the Mapping Engine (if no mapping was supplied),
// Pipeline Inferrer/Executor, SUPP Builder and Validator for a single domain.
func (k *Kernel) TransformDomain(in DomainInput) (DomainOutput, error) {
	domain, ok := k.Standards.Domain(in.DomainCode)
	if !ok {
		return DomainOutput{}, &UnknownDomainError{DomainCode: in.DomainCode}
	}

	state := in.Mapping
	var mapped mapping.Result
	if state == nil {
		mapped = mapping.SuggestAll(in.Hints, domain.Variables, MinMappingConfidence)
		state = mapping.NewState()
		state.ApplySuggestions(mapped)
	}

	p := pipeline.Infer(domain)
	ctx := pipeline.NewExecutionContext(in.StudyID, domain.Code, state, k.Standards.Terminology, k.CTMode)
	for v := range in.Omitted {
		ctx.Omitted[v] = true
	}

	result, err := pipeline.Execute(p, in.Source, ctx)
	if err != nil {
		return DomainOutput{}, err
	}
	k.Logger.Debug("pipeline executed", "domain", domain.Code, "rows", result.Frame.Rows(), "diagnostics", len(result.Diagnostics))

	suppFrame, _ := supp.Build(domain, in.StudyID, in.Source, result.Frame, state.AcceptedSourceColumns(), in.SuppConfigs, k.SuppMaxValueLength)

	notCollected := in.NotCollected
	if notCollected == nil {
		notCollected = map[string]bool{}
	}
	issues := validate.Validate(domain, result.Frame, validate.Config{
		SampleCap:    k.ValidateSampleCap,
		NotCollected: notCollected,
		Terminology:  k.Standards.Terminology,
	})
	if len(issues) > 0 {
		k.Logger.Warn("validation issues found", "domain", domain.Code, "count", len(issues))
	}

	return DomainOutput{
		DomainCode:  domain.Code,
		Frame:       result.Frame,
		Supp:        suppFrame,
		Mapping:     state,
		Mapped:      mapped,
		Diagnostics: result.Diagnostics,
		Issues:      issues,
	}, nil
}

// StudyOutput is the complete result of transforming every domain in a
// study plus the cross-domain relationship frames.
type StudyOutput struct {
	StudyID       string
	Domains       []DomainOutput
	Relationships relationships.Result
}

// AllIssues concatenates every domain's validation issues, in domain order.
func (s StudyOutput) AllIssues() []validate.Issue {
	var out []validate.Issue
	for _, d := range s.Domains {
		out = append(out, d.Issues...)
	}
	return out
}

// TransformStudy runs TransformDomain over every input in order, then the
// Relationship Builder once over the completed set.
func (k *Kernel) TransformStudy(studyID string, inputs []DomainInput) (StudyOutput, error) {
	out := StudyOutput{StudyID: studyID, Domains: make([]DomainOutput, 0, len(inputs))}
	domainFrames := make([]relationships.DomainFrame, 0, len(inputs))

	for _, in := range inputs {
		in.StudyID = studyID
		d, err := k.TransformDomain(in)
		if err != nil {
			return StudyOutput{}, err
		}
		out.Domains = append(out.Domains, d)
		domainFrames = append(domainFrames, relationships.DomainFrame{DomainCode: d.DomainCode, Frame: d.Frame})
	}

	relsubDomain, _ := k.Standards.Domain("RELSUB")
	out.Relationships = relationships.Build(domainFrames, k.Standards.Domains, relsubDomain, studyID, relationships.Config{
		DisableAutoRelrec:    k.DisableAutoRelrec,
		IncludeGRPIDInRelrec: k.EnableGrpidLinking,
	})

	return out, nil
}

// UnknownDomainError reports a DomainInput naming a domain the Standards
// Registry never loaded.
type UnknownDomainError struct {
	DomainCode string
}

func (e *UnknownDomainError) Error() string {
	return "kernel: unknown domain " + e.DomainCode
}
