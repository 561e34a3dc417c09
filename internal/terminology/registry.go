// Package terminology indexes parsed controlled-terminology catalogs and
// resolves a codelist reference to a concrete Codelist across the catalogs a
// study has loaded.
package terminology

import (
	"sort"

	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

// Catalog is one versioned CT publication (e.g. "SDTM CT" 2024-03-29).
type Catalog struct {
	PublishingSet string                       // e.g. "SDTM", "SEND"
	Version       string                       // e.g. "2024-03-29"
	Label         string                       // e.g. "SDTM CT"
	Codelists     map[string]*vartype.Codelist // NCI code -> Codelist
}

// OID is the Define-XML def:Standards OID for this catalog.
func (c Catalog) OID() string {
	return "STD.CT." + c.PublishingSet + "." + c.Version
}

// Registry maps a catalog label to its Catalog.
type Registry struct {
	Catalogs map[string]Catalog
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{Catalogs: make(map[string]Catalog)}
}

// Add registers a catalog under its label.
func (r *Registry) Add(cat Catalog) {
	r.Catalogs[cat.Label] = cat
}

// defaultResolutionOrder is the tie-break order when a codelist code appears
// in more than one loaded catalog and no preference is given.
var defaultResolutionOrder = []string{"SDTM CT", "SEND CT"}

// Resolve finds the Codelist for code, optionally preferring a named
// catalog. Preference order: preferCatalog (if non-empty and it has the
// code) -> "SDTM CT" -> "SEND CT" -> remaining catalogs alphabetically.
func (r *Registry) Resolve(code string, preferCatalog string) (*vartype.Codelist, bool) {
	if preferCatalog != "" {
		if cat, ok := r.Catalogs[preferCatalog]; ok {
			if cl, ok := cat.Codelists[code]; ok {
				return cl, true
			}
		}
	}
	for _, label := range defaultResolutionOrder {
		cat, ok := r.Catalogs[label]
		if !ok {
			continue
		}
		if cl, ok := cat.Codelists[code]; ok {
			return cl, true
		}
	}

	labels := make([]string, 0, len(r.Catalogs))
	for label := range r.Catalogs {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if label == "SDTM CT" || label == "SEND CT" {
			continue
		}
		cat := r.Catalogs[label]
		if cl, ok := cat.Codelists[code]; ok {
			return cl, true
		}
	}
	return nil, false
}

// UsedCatalogs returns the catalogs actually referenced by at least one code
// in usedCodes, sorted by label — the set Define-XML's def:Standards section
// enumerates.
func (r *Registry) UsedCatalogs(usedCodes map[string]bool) []Catalog {
	used := make(map[string]Catalog)
	for code := range usedCodes {
		if cl, ok := r.Resolve(code, ""); ok {
			for label, cat := range r.Catalogs {
				if c, ok := cat.Codelists[code]; ok && c == cl {
					used[label] = cat
					break
				}
			}
		}
	}
	out := make([]Catalog, 0, len(used))
	for _, cat := range used {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
