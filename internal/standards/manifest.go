// Package standards loads, cryptographically verifies, and indexes the
// CDISC SDTM/SDTMIG metadata and Controlled Terminology catalogs that drive
// every downstream pipeline stage.
package standards

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Role is one of the manifest file roles the registry requires.
type Role string

const (
	RoleSDTMDatasets            Role = "sdtm_datasets"
	RoleSDTMVariables           Role = "sdtm_variables"
	RoleSDTMIGDatasets          Role = "sdtmig_datasets"
	RoleSDTMIGVariables         Role = "sdtmig_variables"
	RoleConformanceRulesCatalog Role = "conformance_rules_catalog"
	RoleDefineXSL21             Role = "define_xsl_2_1"
	RoleDefineXSL20             Role = "define_xsl_2_0"
)

// requiredRoles lists every role VerifyAndLoad fails without.
// CT catalog files are referenced separately, via
// Manifest.CTFiles, since a study may load zero or many CT packages.
var requiredRoles = []Role{
	RoleSDTMDatasets,
	RoleSDTMVariables,
	RoleSDTMIGDatasets,
	RoleSDTMIGVariables,
	RoleConformanceRulesCatalog,
	RoleDefineXSL21,
	RoleDefineXSL20,
}

const (
	manifestSchemaTag     = "cdisc-transpiler.standards-manifest"
	manifestSchemaVersion = 1
)

// ManifestFile describes one verified file entry in manifest.toml.
type ManifestFile struct {
	Path   string `toml:"path"`
	Role   string `toml:"role"`
	Sha256 string `toml:"sha256"`
}

// manifestDoc is the raw TOML shape of manifest.toml.
type manifestDoc struct {
	SchemaTag     string            `toml:"schema_tag"`
	SchemaVersion int               `toml:"schema_version"`
	Pins          map[string]string `toml:"pins"`
	Files         []ManifestFile    `toml:"files"`
}

// RegistryError is the wrapping error type VerifyAndLoad surfaces for
// manifest, file-read and digest failures. CSV parse failures are returned
// as plain wrapped errors, not as a RegistryError.
type RegistryError struct {
	Kind     string // "InvalidManifest", "MissingRole", "MissingFile", "Sha256Mismatch", "Io", "Toml"
	Role     Role
	Path     string
	Expected string
	Actual   string
	Cause    error
}

func (e *RegistryError) Error() string {
	switch e.Kind {
	case "MissingRole":
		return fmt.Sprintf("standards: manifest missing required role %q", e.Role)
	case "MissingFile":
		return fmt.Sprintf("standards: manifest references missing file %q", e.Path)
	case "Sha256Mismatch":
		return fmt.Sprintf("standards: sha256 mismatch for %q: expected %s, got %s", e.Path, e.Expected, e.Actual)
	case "InvalidManifest":
		msg := "standards: invalid manifest"
		if e.Cause != nil {
			msg += ": " + e.Cause.Error()
		}
		return msg
	case "Io":
		return fmt.Sprintf("standards: io error reading %q: %v", e.Path, e.Cause)
	case "Toml":
		return fmt.Sprintf("standards: toml parse error: %v", e.Cause)
	default:
		return "standards: registry error"
	}
}

func (e *RegistryError) Unwrap() error { return e.Cause }

var (
	ErrMissingRole     = errors.New("missing_role")
	ErrMissingFile     = errors.New("missing_file")
	ErrSha256Mismatch  = errors.New("sha256_mismatch")
	ErrInvalidManifest = errors.New("invalid_manifest")
)

func (e *RegistryError) Is(target error) bool {
	switch e.Kind {
	case "MissingRole":
		return target == ErrMissingRole
	case "MissingFile":
		return target == ErrMissingFile
	case "Sha256Mismatch":
		return target == ErrSha256Mismatch
	case "InvalidManifest":
		return target == ErrInvalidManifest
	}
	return false
}

// parseManifest loads and structurally validates manifest.toml: schema tag,
// schema version, POSIX-only path separators, and presence of every required role.
func parseManifest(dir string) (manifestDoc, error) {
	path := filepath.Join(dir, "manifest.toml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return manifestDoc{}, &RegistryError{Kind: "Io", Path: path, Cause: err}
	}

	var doc manifestDoc
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return manifestDoc{}, &RegistryError{Kind: "Toml", Cause: err}
	}

	if doc.SchemaTag != manifestSchemaTag {
		return manifestDoc{}, &RegistryError{Kind: "InvalidManifest", Cause: fmt.Errorf("schema_tag %q != %q", doc.SchemaTag, manifestSchemaTag)}
	}
	if doc.SchemaVersion != manifestSchemaVersion {
		return manifestDoc{}, &RegistryError{Kind: "InvalidManifest", Cause: fmt.Errorf("schema_version %d != %d", doc.SchemaVersion, manifestSchemaVersion)}
	}

	seenRoles := make(map[string]bool, len(doc.Files))
	for _, f := range doc.Files {
		if strings.Contains(f.Path, `\`) {
			return manifestDoc{}, &RegistryError{Kind: "InvalidManifest", Path: f.Path, Cause: fmt.Errorf("path uses backslash separators")}
		}
		if len(f.Sha256) != 64 {
			return manifestDoc{}, &RegistryError{Kind: "InvalidManifest", Path: f.Path, Cause: fmt.Errorf("sha256 must be 64 hex chars, got %d", len(f.Sha256))}
		}
		seenRoles[f.Role] = true
	}

	for _, role := range requiredRoles {
		if !seenRoles[string(role)] {
			return manifestDoc{}, &RegistryError{Kind: "MissingRole", Role: role}
		}
	}

	return doc, nil
}

// fileByRole finds the single manifest entry for a required role.
func fileByRole(doc manifestDoc, role Role) (ManifestFile, bool) {
	for _, f := range doc.Files {
		if f.Role == string(role) {
			return f, true
		}
	}
	return ManifestFile{}, false
}

// filesByRolePrefix returns every entry whose role starts with prefix, used
// for the open-ended set of CT package files (each its own role like
// "ct_sdtm_2024_03_29").
func filesByRolePrefix(doc manifestDoc, prefix string) []ManifestFile {
	var out []ManifestFile
	for _, f := range doc.Files {
		if strings.HasPrefix(f.Role, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// verifyAndRead reads dir/file.Path and checks its SHA-256 against
// file.Sha256 in constant time.
func verifyAndRead(dir string, file ManifestFile) ([]byte, error) {
	path := filepath.Join(dir, filepath.FromSlash(file.Path))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &RegistryError{Kind: "MissingFile", Path: file.Path, Cause: err}
		}
		return nil, &RegistryError{Kind: "Io", Path: file.Path, Cause: err}
	}

	sum := sha256.Sum256(raw)
	actual := hex.EncodeToString(sum[:])
	expected := strings.ToLower(file.Sha256)
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return nil, &RegistryError{Kind: "Sha256Mismatch", Path: file.Path, Expected: expected, Actual: actual}
	}
	return raw, nil
}
