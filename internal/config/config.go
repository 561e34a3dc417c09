// Package config loads the kernel's runtime settings from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default values. Every field has one: the kernel must run
// with zero configuration, env vars and .env are a CLI convenience only and
// CLI flags always take precedence over them.
const (
	DefaultStandardsDir = "./standards"
	DefaultCTMode       = "lenient"
	DefaultXPORTVersion = "5"

	DefaultSuppMaxValueLength = 200 // SDTMIG 4.5.3.2 long-value split threshold
	DefaultValidateSampleCap  = 10  // matches validate.DefaultSampleCap

	DefaultDisableAutoRelrec  = false
	DefaultEnableGrpidLinking = false
	DefaultAllowExportBypass  = false

	DefaultLogFormat = "text" // "text" in development, "json" in production
	DefaultLogLevel  = "info"
)

// CTMode is the closed set of controlled-terminology matching modes.
type CTMode string

const (
	CTModeLenient CTMode = "lenient"
	CTModeStrict  CTMode = "strict"
)

// XPORTVersion is the closed set of SAS XPORT transport versions.
type XPORTVersion string

const (
	XPORTV5 XPORTVersion = "5"
	XPORTV8 XPORTVersion = "8"
)

// Config carries every knob the kernel's packages need beyond what a single
// call passes explicitly.
type Config struct {
	// Standards Registry (internal/standards)
	StandardsDir string

	// Pipeline / Mapping Engine
	CTMode CTMode

	// SUPP Builder (internal/supp)
	SuppMaxValueLength int

	// Validator (internal/validate)
	ValidateSampleCap int

	// Relationship Builder (internal/relationships)
	DisableAutoRelrec  bool
	EnableGrpidLinking bool

	// Exporter (internal/xport, internal/definexml)
	XPORTVersion      XPORTVersion
	AllowExportBypass bool

	// Logging
	LogFormat string
	LogLevel  string
}

// Load reads .env (if present, CLI convenience only) and then the process
// environment into a Config, falling back to the Default* constants.
// godotenv errors are ignored since the file is optional.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		StandardsDir: getEnv("SDTMKIT_STANDARDS_DIR", DefaultStandardsDir),

		CTMode: CTMode(getEnv("SDTMKIT_CT_MODE", DefaultCTMode)),

		SuppMaxValueLength: getEnvInt("SDTMKIT_SUPP_MAX_VALUE_LENGTH", DefaultSuppMaxValueLength),
		ValidateSampleCap:  getEnvInt("SDTMKIT_VALIDATE_SAMPLE_CAP", DefaultValidateSampleCap),

		DisableAutoRelrec:  getEnvBool("SDTMKIT_DISABLE_AUTO_RELREC", DefaultDisableAutoRelrec),
		EnableGrpidLinking: getEnvBool("SDTMKIT_ENABLE_GRPID_LINKING", DefaultEnableGrpidLinking),

		XPORTVersion:      XPORTVersion(getEnv("SDTMKIT_XPORT_VERSION", DefaultXPORTVersion)),
		AllowExportBypass: getEnvBool("SDTMKIT_ALLOW_EXPORT_BYPASS", DefaultAllowExportBypass),

		LogFormat: getEnv("SDTMKIT_LOG_FORMAT", DefaultLogFormat),
		LogLevel:  getEnv("SDTMKIT_LOG_LEVEL", DefaultLogLevel),
	}
}

// Validate checks config values and returns an error on the first failure.
// Call after Load to fail fast on invalid configuration, before any CLI verb
// runs.
func (c *Config) Validate() error {
	if c.StandardsDir == "" {
		return fmt.Errorf("SDTMKIT_STANDARDS_DIR must not be empty")
	}
	if c.CTMode != CTModeLenient && c.CTMode != CTModeStrict {
		return fmt.Errorf("SDTMKIT_CT_MODE must be %q or %q, got %q", CTModeLenient, CTModeStrict, c.CTMode)
	}
	if c.XPORTVersion != XPORTV5 && c.XPORTVersion != XPORTV8 {
		return fmt.Errorf("SDTMKIT_XPORT_VERSION must be %q or %q, got %q", XPORTV5, XPORTV8, c.XPORTVersion)
	}
	if c.SuppMaxValueLength <= 0 {
		return fmt.Errorf("SDTMKIT_SUPP_MAX_VALUE_LENGTH must be positive")
	}
	if c.ValidateSampleCap <= 0 {
		return fmt.Errorf("SDTMKIT_VALIDATE_SAMPLE_CAP must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("SDTMKIT_LOG_FORMAT must be %q or %q, got %q", "text", "json", c.LogFormat)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("SDTMKIT_LOG_LEVEL invalid: %w", err)
	}
	return nil
}

// NewLogger builds the process-wide structured logger: JSON in production,
// text in development. The kernel receives this logger explicitly rather
// than reading a package global.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
