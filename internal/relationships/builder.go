package relationships

import "github.com/cdisc-transpiler/sdtmkit/internal/vartype"

// Result holds the three relationship frames a Build call may produce. An
// empty Frame (zero rows) means that relationship type had nothing to
// report; callers skip zero-row frames at export time.
type Result struct {
	RELREC  DomainFrame
	RELSPEC DomainFrame
	RELSUB  DomainFrame
}

// Build runs all three relationship algorithms over a completed set of
// domain frames. relsubDomain is optional; when its Variables list is
// empty, RELSUB generation is skipped (the caller's standards registry did
// not load a RELSUB definition).
func Build(domains []DomainFrame, standards map[string]vartype.Domain, relsubDomain vartype.Domain, studyID string, cfg Config) Result {
	result := Result{
		RELREC:  DomainFrame{DomainCode: "RELREC", Frame: BuildRELREC(domains, standards, studyID, cfg)},
		RELSPEC: DomainFrame{DomainCode: "RELSPEC", Frame: BuildRELSPEC(domains, standards, studyID)},
	}
	if len(relsubDomain.Variables) > 0 {
		result.RELSUB = DomainFrame{DomainCode: "RELSUB", Frame: BuildRELSUB(domains, relsubDomain, studyID)}
	}
	return result
}
