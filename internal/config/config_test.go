package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.CTMode != CTModeLenient {
		t.Errorf("CTMode = %q, want lenient default", cfg.CTMode)
	}
	if cfg.XPORTVersion != XPORTV5 {
		t.Errorf("XPORTVersion = %q, want V5 default", cfg.XPORTVersion)
	}
	if cfg.AllowExportBypass {
		t.Errorf("AllowExportBypass should default false")
	}
	if cfg.DisableAutoRelrec {
		t.Errorf("DisableAutoRelrec should default false")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidate_RejectsUnknownCTMode(t *testing.T) {
	cfg := Load()
	cfg.CTMode = "aggressive"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown CT mode")
	}
	if !strings.Contains(err.Error(), "SDTMKIT_CT_MODE") {
		t.Fatalf("expected SDTMKIT_CT_MODE error, got: %v", err)
	}
}

func TestValidate_RejectsUnknownXPORTVersion(t *testing.T) {
	cfg := Load()
	cfg.XPORTVersion = "6"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown XPORT version")
	}
	if !strings.Contains(err.Error(), "SDTMKIT_XPORT_VERSION") {
		t.Fatalf("expected SDTMKIT_XPORT_VERSION error, got: %v", err)
	}
}

func TestValidate_RejectsNonPositiveLengthLimits(t *testing.T) {
	cfg := Load()
	cfg.SuppMaxValueLength = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero SuppMaxValueLength")
	}
}

func TestNewLogger_BuildsJSONAndTextHandlers(t *testing.T) {
	cfg := Load()
	cfg.LogFormat = "json"
	if logger := cfg.NewLogger(); logger == nil {
		t.Fatal("expected a non-nil JSON logger")
	}
	cfg.LogFormat = "text"
	if logger := cfg.NewLogger(); logger == nil {
		t.Fatal("expected a non-nil text logger")
	}
}
