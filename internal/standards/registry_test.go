package standards

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sdtmDatasetsCSV = "Domain,Dataset Name,Class,Label,Structure\n" +
	"AE,,events,Adverse Events,One record per event per subject\n"

const sdtmigDatasetsCSV = "Domain,Dataset Name,Class,Label,Structure\n" +
	"AE,,events,Adverse Events,One record per adverse event per subject\n"

const sdtmVariablesCSV = "Domain,Variable Name,Variable Label,Type,Length,Role,Core,Codelist,Described Value Domain,Ordinal\n" +
	"AE,STUDYID,Study Identifier,character,20,identifier,required,,,1\n" +
	"AE,USUBJID,Unique Subject Identifier,character,40,identifier,required,,,3\n"

const sdtmigVariablesCSV = "Domain,Variable Name,Variable Label,Type,Length,Role,Core,Codelist,Described Value Domain,Ordinal\n" +
	"AE,DOMAIN,Domain Abbreviation,character,2,identifier,required,,,2\n" +
	"AE,AESEQ,Sequence Number,numeric,8,identifier,required,,,4\n" +
	"AE,AESTDTC,Start Date/Time of Adverse Event,character,19,timing,expected,,ISO 8601 datetime,5\n" +
	"AE,AESEX,Sex,character,2,qualifier,permissible,C66731,,6\n" +
	"AE,USUBJID,Unique Subject Identifier,character,40,identifier,required,,,3\n"

const ctCSV = "Code,Codelist Code,Codelist Extensible,CDISC Submission Value,CDISC Synonym(s),CDISC Definition,NCI Preferred Term\n" +
	"C66731,,No,,,,Sex\n" +
	"C20197,C66731,,M,MALE;male,Male,Male\n" +
	"C16576,C66731,,F,FEMALE,Female,Female\n"

const conformanceCSV = "rule_id,description\nCORE-0001,placeholder\n"
const xslPlaceholder = "<xsl:stylesheet/>"

func writeFixture(t *testing.T, dir, relPath, content string) ManifestFile {
	t.Helper()
	full := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte(content))
	return ManifestFile{Path: relPath, Sha256: hex.EncodeToString(sum[:])}
}

func buildFixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	sdtmDatasets := writeFixture(t, dir, "sdtm/datasets.csv", sdtmDatasetsCSV)
	sdtmDatasets.Role = string(RoleSDTMDatasets)
	sdtmVars := writeFixture(t, dir, "sdtm/variables.csv", sdtmVariablesCSV)
	sdtmVars.Role = string(RoleSDTMVariables)
	sdtmigDatasets := writeFixture(t, dir, "sdtmig/datasets.csv", sdtmigDatasetsCSV)
	sdtmigDatasets.Role = string(RoleSDTMIGDatasets)
	sdtmigVars := writeFixture(t, dir, "sdtmig/variables.csv", sdtmigVariablesCSV)
	sdtmigVars.Role = string(RoleSDTMIGVariables)
	conformance := writeFixture(t, dir, "conformance.csv", conformanceCSV)
	conformance.Role = string(RoleConformanceRulesCatalog)
	xsl21 := writeFixture(t, dir, "define2-1.xsl", xslPlaceholder)
	xsl21.Role = string(RoleDefineXSL21)
	xsl20 := writeFixture(t, dir, "define2-0.xsl", xslPlaceholder)
	xsl20.Role = string(RoleDefineXSL20)
	ct := writeFixture(t, dir, "ct/sdtm_2024-03-29.csv", ctCSV)
	ct.Role = "ct_sdtm_2024-03-29"

	files := []ManifestFile{sdtmDatasets, sdtmVars, sdtmigDatasets, sdtmigVars, conformance, xsl21, xsl20, ct}

	var sb []byte
	sb = append(sb, []byte("schema_tag = \"cdisc-transpiler.standards-manifest\"\nschema_version = 1\n\n[pins]\n\n")...)
	for _, f := range files {
		sb = append(sb, []byte("[[files]]\n")...)
		sb = append(sb, []byte("path = \""+f.Path+"\"\n")...)
		sb = append(sb, []byte("role = \""+f.Role+"\"\n")...)
		sb = append(sb, []byte("sha256 = \""+f.Sha256+"\"\n\n")...)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.toml"), sb, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVerifyAndLoad_Success(t *testing.T) {
	dir := buildFixtureDir(t)
	reg, summary, err := VerifyAndLoad(dir)
	if err != nil {
		t.Fatalf("VerifyAndLoad: %v", err)
	}
	if summary.DatasetCount != 1 {
		t.Errorf("DatasetCount = %d, want 1", summary.DatasetCount)
	}
	if summary.CodelistCount != 1 {
		t.Errorf("CodelistCount = %d, want 1", summary.CodelistCount)
	}

	ae, ok := reg.Domain("AE")
	if !ok {
		t.Fatal("expected AE domain to be loaded")
	}
	if !ae.HasUSUBJID() {
		t.Error("AE domain must have USUBJID")
	}
	if ae.Structure != "One record per adverse event per subject" {
		t.Errorf("Structure should be overlaid by SDTMIG, got %q", ae.Structure)
	}

	// STUDYID, DOMAIN, USUBJID, AESEQ, AESTDTC, AESEX in ordinal order.
	wantOrder := []string{"STUDYID", "DOMAIN", "USUBJID", "AESEQ", "AESTDTC", "AESEX"}
	for i, v := range ae.Variables {
		if v.Name != wantOrder[i] {
			t.Errorf("Variables[%d] = %s, want %s", i, v.Name, wantOrder[i])
		}
	}

	cl, ok := reg.Terminology.Resolve("C66731", "")
	if !ok {
		t.Fatal("expected C66731 codelist to resolve")
	}
	if sub, ok := cl.FindSubmissionValue("male"); !ok || sub != "M" {
		t.Errorf("FindSubmissionValue(male) = (%q, %v), want (M, true)", sub, ok)
	}
}

func TestVerifyAndLoad_Sha256Mismatch(t *testing.T) {
	dir := buildFixtureDir(t)
	// Corrupt one verified file after the manifest was written against its
	// original digest.
	path := filepath.Join(dir, "sdtm", "datasets.csv")
	if err := os.WriteFile(path, []byte(sdtmDatasetsCSV+"\nEXTRA"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := VerifyAndLoad(dir)
	if err == nil {
		t.Fatal("expected sha256 mismatch error")
	}
	if !errors.Is(err, ErrSha256Mismatch) {
		t.Errorf("expected ErrSha256Mismatch, got %v", err)
	}
}

func TestVerifyAndLoad_MissingRole(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.toml"), []byte(
		"schema_tag = \"cdisc-transpiler.standards-manifest\"\nschema_version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := VerifyAndLoad(dir)
	if !errors.Is(err, ErrMissingRole) {
		t.Errorf("expected ErrMissingRole, got %v", err)
	}
}

func TestVerifyAndLoad_IdenticalVariableRecordsNoConflict(t *testing.T) {
	dir := buildFixtureDir(t)
	reg, _, err := VerifyAndLoad(dir)
	if err != nil {
		t.Fatalf("VerifyAndLoad: %v", err)
	}
	// USUBJID is declared identically in both layers of this fixture.
	for _, c := range reg.Conflicts {
		if c.Variable == "USUBJID" {
			t.Errorf("unexpected conflict for identical USUBJID: %+v", c)
		}
	}
}
