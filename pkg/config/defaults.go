package config

import (
	"strings"
)

// GetDefaultConfig returns a configuration populated with defaults only.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Commit.Atomic = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyCommitDefaults(&cfg.Commit)
	applyOutputDefaults(&cfg.Output)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in)
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyCommitDefaults sets commit defaults.
func applyCommitDefaults(cfg *CommitConfig) {
	// Atomic defaults to true; the viper default in setupViper covers
	// file loads, and GetDefaultConfig covers the no-file path.
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 4
	}
}

// applyOutputDefaults sets CLI output defaults.
func applyOutputDefaults(cfg *OutputConfig) {
	if cfg.Format == "" {
		cfg.Format = "table"
	}
}
