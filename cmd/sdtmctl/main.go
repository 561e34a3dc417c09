// Command sdtmctl is the minimal CLI surface of the kernel: verify a
// standards directory, transform a sponsor study folder into SDTM exports,
// and diff two prior outputs. It is a thin caller over internal/kernel —
// all the transformation/validation logic lives there; this binary only
// discovers files on disk, wires flags to Config, and maps results to the
// stable exit codes documented below.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/config"
	"github.com/cdisc-transpiler/sdtmkit/internal/definexml"
	"github.com/cdisc-transpiler/sdtmkit/internal/ingest"
	"github.com/cdisc-transpiler/sdtmkit/internal/kernel"
	"github.com/cdisc-transpiler/sdtmkit/internal/pipeline"
	"github.com/cdisc-transpiler/sdtmkit/internal/reportdiff"
	"github.com/cdisc-transpiler/sdtmkit/internal/standards"
	"github.com/cdisc-transpiler/sdtmkit/internal/validate"
	"github.com/cdisc-transpiler/sdtmkit/internal/xport"
)

const usage = `sdtmctl - CDISC SDTM transformation/validation kernel CLI

Usage:
  sdtmctl verify <standards-dir>
  sdtmctl transform <study-dir> --standards <dir> --study-id <id> --out <dir>
  sdtmctl diff <before> <after>

Run 'sdtmctl <command> -h' for command-specific options.
`

// Exit codes.
const (
	exitOK               = 0
	exitUsage            = 1
	exitInvalidManifest  = 2
	exitMissingRole      = 3
	exitMissingFile      = 4
	exitDigestMismatch   = 5
	exitValidationErrors = 10
	exitSchemaMismatch   = 11
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}

	var code int
	switch os.Args[1] {
	case "verify":
		code = runVerify(os.Args[2:])
	case "transform":
		code = runTransform(os.Args[2:])
	case "diff":
		code = runDiff(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		code = exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		code = exitUsage
	}
	os.Exit(code)
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sdtmctl verify <standards-dir>")
		return exitUsage
	}
	dir := fs.Arg(0)

	_, summary, err := standards.VerifyAndLoad(dir)
	if err != nil {
		var regErr *standards.RegistryError
		if errors.As(err, &regErr) {
			fmt.Fprintln(os.Stderr, regErr.Error())
			switch {
			case errors.Is(regErr, standards.ErrMissingRole):
				return exitMissingRole
			case errors.Is(regErr, standards.ErrMissingFile):
				return exitMissingFile
			case errors.Is(regErr, standards.ErrSha256Mismatch):
				return exitDigestMismatch
			default:
				return exitInvalidManifest
			}
		}
		fmt.Fprintln(os.Stderr, err.Error())
		return exitInvalidManifest
	}

	fmt.Printf("verified: %d datasets, %d variables, %d codelists, %d SDTM/SDTMIG conflicts\n",
		summary.DatasetCount, summary.VariableCount, summary.CodelistCount, summary.ConflictCount)
	return exitOK
}

func runTransform(args []string) int {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	standardsDir := fs.String("standards", "", "standards directory verified by 'verify' (required)")
	studyID := fs.String("study-id", "", "STUDYID constant stamped into every domain (required)")
	outDir := fs.String("out", "", "output directory for .xpt files and define.xml (required)")
	ctMode := fs.String("ct-mode", string(config.DefaultCTMode), "controlled terminology matching mode: strict|lenient")
	xportVersion := fs.String("xport-version", config.DefaultXPORTVersion, "SAS XPORT version: 5|8")
	bypass := fs.Bool("bypass-validation", false, "export even when validation reports Error/Reject issues")
	disableRelrec := fs.Bool("disable-auto-relrec", false, "disable automatic RELREC derivation")
	enableGrpid := fs.Bool("enable-grpid-linking", false, "treat GRPID as a cross-domain link identifier (non-default per SDTMIG)")
	fs.Parse(args)

	if fs.NArg() != 1 || *standardsDir == "" || *studyID == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: sdtmctl transform <study-dir> --standards <dir> --study-id <id> --out <dir>")
		return exitUsage
	}
	studyDir := fs.Arg(0)

	cfg := config.Load()
	cfg.StandardsDir = *standardsDir
	cfg.CTMode = config.CTMode(*ctMode)
	cfg.XPORTVersion = config.XPORTVersion(*xportVersion)
	cfg.AllowExportBypass = *bypass
	cfg.DisableAutoRelrec = *disableRelrec
	cfg.EnableGrpidLinking = *enableGrpid
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return exitSchemaMismatch
	}
	logger := cfg.NewLogger()

	reg, _, err := standards.VerifyAndLoad(cfg.StandardsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitSchemaMismatch
	}

	inputs, err := discoverDomainInputs(studyDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitUsage
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "no sponsor source tables found in %s\n", studyDir)
		return exitUsage
	}

	k := kernel.New(reg, logger)
	k.CTMode = pipelineCTMode(cfg.CTMode)
	k.DisableAutoRelrec = cfg.DisableAutoRelrec
	k.EnableGrpidLinking = cfg.EnableGrpidLinking
	k.ValidateSampleCap = cfg.ValidateSampleCap
	k.SuppMaxValueLength = cfg.SuppMaxValueLength

	study, err := k.TransformStudy(*studyID, inputs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transform failed:", err)
		return exitSchemaMismatch
	}

	issues := study.AllIssues()
	reportErrors := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "[%s] %s %s: %s\n", iss.Severity, iss.Domain, iss.Variable, iss.Message)
		if iss.Severity == validate.SeverityError || iss.Severity == validate.SeverityReject {
			reportErrors = true
		}
	}

	if reportErrors && !cfg.AllowExportBypass {
		fmt.Fprintln(os.Stderr, "validation errors present; export refused (use --bypass-validation to override)")
		return exitValidationErrors
	}

	xportVer := xport.V5
	if cfg.XPORTVersion == config.XPORTV8 {
		xportVer = xport.V8
	}
	if err := k.Export(study, kernel.ExportOptions{
		OutDir:       *outDir,
		XPORTVersion: xportVer,
		DefineXML:    definexml.Options{ProtocolName: *studyID},
	}); err != nil {
		fmt.Fprintln(os.Stderr, "export failed:", err)
		return exitSchemaMismatch
	}

	if reportErrors {
		return exitValidationErrors
	}
	return exitOK
}

func runDiff(args []string) int {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "emit JSON instead of unified diff text")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: sdtmctl diff <before> <after>")
		return exitUsage
	}

	before, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	after, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	result := reportdiff.Diff(string(before), string(after))
	if *asJSON {
		fmt.Println(formatJSON(result))
	} else {
		fmt.Print(reportdiff.FormatUnified(result))
	}
	fmt.Fprintf(os.Stderr, "changes: +%d -%d lines\n", result.Added, result.Removed)
	return exitOK // a non-empty diff is informational, not a failure
}

// discoverDomainInputs treats every *.csv and *.xlsx file directly under
// studyDir as one sponsor source table, domain code = the uppercased file
// stem. This is the minimal convention the CLI needs; real study-folder
// discovery (naming variants, manifest-driven table lists) is the GUI
// shell's job and is intentionally not reimplemented here.
func discoverDomainInputs(studyDir string) ([]kernel.DomainInput, error) {
	entries, err := os.ReadDir(studyDir)
	if err != nil {
		return nil, fmt.Errorf("reading study dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	inputs := make([]kernel.DomainInput, 0, len(names))
	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		domainCode := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))

		var raw [][]string
		var err error
		if ext == ".xlsx" {
			raw, err = ingest.ReadXLSXFile(filepath.Join(studyDir, name), "")
		} else {
			raw, err = ingest.ReadCSVFile(filepath.Join(studyDir, name))
		}
		if err != nil {
			return nil, err
		}
		table, err := ingest.FromRawRows(raw, false)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		f, hints := table.ToFrame(domainCode)
		inputs = append(inputs, kernel.DomainInput{
			DomainCode: domainCode,
			Source:     f,
			Hints:      hints,
		})
	}
	return inputs, nil
}

func pipelineCTMode(m config.CTMode) pipeline.CTMode {
	if m == config.CTModeStrict {
		return pipeline.CTModeStrict
	}
	return pipeline.CTModeLenient
}

func formatJSON(r *reportdiff.Result) string {
	var b strings.Builder
	b.WriteString("{\"added\":")
	fmt.Fprintf(&b, "%d,\"removed\":%d,\"hunks\":%d}", r.Added, r.Removed, len(r.Hunks))
	return b.String()
}
