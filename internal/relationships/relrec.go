// Package relationships derives cross-domain record relationships from
// link-identifier columns, emitting RELREC, RELSPEC and RELSUB frames.
package relationships

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// DomainFrame pairs a domain code with its normalized output frame, the
// unit the Relationship Builder fans out over.
type DomainFrame struct {
	DomainCode string
	Frame      frame.Frame
}

// Config toggles the non-default relationship behaviors. RELREC
// auto-generation defaults on; GRPID participation defaults off, per
// SDTMIG 8.1 treating --GRPID as intra-domain only.
type Config struct {
	DisableAutoRelrec    bool
	IncludeGRPIDInRelrec bool
}

type linkKind string

const (
	linkLNKID  linkKind = "LNKID"
	linkLNKGRP linkKind = "LNKGRP"
	linkGRPID  linkKind = "GRPID"
)

type linkIdentifier struct {
	variable string
	kind     linkKind
}

type relrecKey struct {
	kind     linkKind
	usubjid  string
	idvarval string
}

type relrecMember struct {
	domainCode string
	usubjid    string
	idvar      string
	idvarval   string
}

var relrecColumns = []string{"STUDYID", "RDOMAIN", "USUBJID", "IDVAR", "IDVARVAL", "RELTYPE", "RELID"}

// BuildRELREC groups rows across domains by (link kind, USUBJID, link
// value); any group spanning two or more distinct domains becomes one
// relationship, assigned a monotonic REL##### id in group-iteration order.
func BuildRELREC(domains []DomainFrame, standards map[string]vartype.Domain, studyID string, cfg Config) frame.Frame {
	if cfg.DisableAutoRelrec {
		return frame.New("RELREC", nil, nil)
	}

	groups := make(map[relrecKey][]relrecMember)
	var order []relrecKey

	for _, df := range domains {
		if strings.EqualFold(df.DomainCode, "CO") {
			continue
		}
		if df.Frame.Rows() == 0 {
			continue
		}
		std, ok := standards[strings.ToUpper(df.DomainCode)]
		if !ok {
			continue
		}
		if !df.Frame.Has("USUBJID") {
			continue
		}
		link, ok := inferLinkIdentifier(std, df.Frame, cfg)
		if !ok {
			continue
		}
		for row := 0; row < df.Frame.Rows(); row++ {
			usubjid := df.Frame.CellTrimmed("USUBJID", row)
			idvarval := df.Frame.CellTrimmed(link.variable, row)
			if idvarval == "" {
				continue
			}
			key := relrecKey{kind: link.kind, usubjid: usubjid, idvarval: idvarval}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], relrecMember{
				domainCode: strings.ToUpper(df.DomainCode),
				usubjid:    usubjid,
				idvar:      link.variable,
				idvarval:   idvarval,
			})
		}
	}

	data := make(map[string][]string, len(relrecColumns))
	counter := 0
	for _, key := range order {
		members := groups[key]
		distinctDomains := make(map[string]bool)
		for _, m := range members {
			distinctDomains[m.domainCode] = true
		}
		if len(distinctDomains) < 2 {
			continue
		}
		counter++
		relid := fmt.Sprintf("REL%05d", counter)
		for _, m := range members {
			data["STUDYID"] = append(data["STUDYID"], studyID)
			data["RDOMAIN"] = append(data["RDOMAIN"], m.domainCode)
			data["USUBJID"] = append(data["USUBJID"], m.usubjid)
			data["IDVAR"] = append(data["IDVAR"], m.idvar)
			data["IDVARVAL"] = append(data["IDVARVAL"], m.idvarval)
			data["RELTYPE"] = append(data["RELTYPE"], "")
			data["RELID"] = append(data["RELID"], relid)
		}
	}

	return frame.New("RELREC", relrecColumns, data)
}

// inferLinkIdentifier finds the domain's cross-domain link variable:
// --LNKID first, then --LNKGRP, then (only if configured) --GRPID. Ties
// among candidate variables of the same suffix break alphabetically, and
// only a populated candidate column is eligible.
func inferLinkIdentifier(domain vartype.Domain, f frame.Frame, cfg Config) (linkIdentifier, bool) {
	kinds := []linkKind{linkLNKID, linkLNKGRP}
	if cfg.IncludeGRPIDInRelrec {
		kinds = append(kinds, linkGRPID)
	}
	for _, kind := range kinds {
		if name, ok := findSuffixColumn(domain, f, string(kind)); ok {
			return linkIdentifier{variable: name, kind: kind}, true
		}
	}
	return linkIdentifier{}, false
}

func findSuffixColumn(domain vartype.Domain, f frame.Frame, suffix string) (string, bool) {
	var candidates []string
	for _, v := range domain.Variables {
		upper := strings.ToUpper(v.Name)
		if strings.HasSuffix(upper, suffix) && f.Has(v.Name) {
			candidates = append(candidates, v.Name)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return strings.ToUpper(candidates[i]) < strings.ToUpper(candidates[j])
	})
	for _, name := range candidates {
		if columnHasValue(f, name) {
			return name, true
		}
	}
	return "", false
}

func columnHasValue(f frame.Frame, column string) bool {
	for i := 0; i < f.Rows(); i++ {
		if f.CellTrimmed(column, i) != "" {
			return true
		}
	}
	return false
}
