package terminology

import (
	"testing"

	"github.com/cdisc-transpiler/sdtmkit/internal/vartype"
)

func TestRegistry_Resolve_DefaultOrder(t *testing.T) {
	r := NewRegistry()
	sex := vartype.NewCodelist("C66731", "Sex", false, []vartype.Term{{Code: "C1", SubmissionValue: "M"}})
	sendSex := vartype.NewCodelist("C66731", "Sex", false, []vartype.Term{{Code: "C1", SubmissionValue: "M"}})
	r.Add(Catalog{PublishingSet: "SEND", Version: "2023-01-01", Label: "SEND CT", Codelists: map[string]*vartype.Codelist{"C66731": sendSex}})
	r.Add(Catalog{PublishingSet: "SDTM", Version: "2024-03-29", Label: "SDTM CT", Codelists: map[string]*vartype.Codelist{"C66731": sex}})

	cl, ok := r.Resolve("C66731", "")
	if !ok || cl != sex {
		t.Fatalf("expected resolve to prefer SDTM CT")
	}
}

func TestCatalog_OID(t *testing.T) {
	c := Catalog{PublishingSet: "SDTM", Version: "2024-03-29"}
	want := "STD.CT.SDTM.2024-03-29"
	if got := c.OID(); got != want {
		t.Errorf("OID() = %q, want %q", got, want)
	}
}

func TestRegistry_Resolve_PreferredCatalog(t *testing.T) {
	r := NewRegistry()
	sdtmSex := vartype.NewCodelist("C66731", "Sex", false, []vartype.Term{{Code: "C1", SubmissionValue: "M"}})
	customSex := vartype.NewCodelist("C66731", "Sex", false, []vartype.Term{{Code: "C1", SubmissionValue: "MALE"}})
	r.Add(Catalog{Label: "SDTM CT", Codelists: map[string]*vartype.Codelist{"C66731": sdtmSex}})
	r.Add(Catalog{Label: "Custom CT", Codelists: map[string]*vartype.Codelist{"C66731": customSex}})

	cl, ok := r.Resolve("C66731", "Custom CT")
	if !ok || cl != customSex {
		t.Fatalf("expected preferred catalog to win")
	}
}
