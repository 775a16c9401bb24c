package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variable names.
const (
	EnvExemptionDocument = "SCP_EXEMPTION_DOCUMENT_NAME"
	EnvCleanupDocument   = "CLEANUP_DOCUMENT_NAME"
	EnvExecutionRole     = "EXECUTION_ROLE_NAME"
	EnvAssumeRole        = "AUTOMATION_ASSUME_ROLE"
	EnvLogLevel          = "LOG_LEVEL"
)

// Config holds the environment-derived constants the adapter runs with.
// It is loaded once at startup and passed explicitly; nothing reads the
// environment after Load returns.
type Config struct {
	ExemptionDocumentName string
	CleanupDocumentName   string
	ExecutionRoleName     string
	AutomationAssumeRole  string
	LogLevel              slog.Level
}

// Load reads and validates the process configuration. Problems are
// accumulated so a single failed startup reports every missing variable.
func Load() (*Config, error) {
	cfg := &Config{
		ExemptionDocumentName: os.Getenv(EnvExemptionDocument),
		CleanupDocumentName:   os.Getenv(EnvCleanupDocument),
		ExecutionRoleName:     os.Getenv(EnvExecutionRole),
		AutomationAssumeRole:  os.Getenv(EnvAssumeRole),
		LogLevel:              slog.LevelDebug,
	}

	var errs []string
	for _, v := range []struct{ name, val string }{
		{EnvExemptionDocument, cfg.ExemptionDocumentName},
		{EnvCleanupDocument, cfg.CleanupDocumentName},
		{EnvExecutionRole, cfg.ExecutionRoleName},
		{EnvAssumeRole, cfg.AutomationAssumeRole},
	} {
		if v.val == "" {
			errs = append(errs, fmt.Sprintf("%s is missing or empty", v.name))
		}
	}

	if raw := os.Getenv(EnvLogLevel); raw != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a recognized level", EnvLogLevel, raw))
		} else {
			cfg.LogLevel = lvl
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return cfg, nil
}
