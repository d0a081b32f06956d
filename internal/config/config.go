// Package config loads investigation settings from a YAML file and
// environment variables. Precedence: built-in defaults, then the YAML
// file, then environment overrides. Invalid configuration is fatal at
// startup; nothing downstream ever sees an unvalidated Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML either as a Go
// duration string ("30s") or a bare integer number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all tunables for one investigation run.
type Config struct {
	// MaxDepth is the maximum number of refinement iterations.
	// Default: 5, Range: 1-20
	MaxDepth int `yaml:"max_depth"`

	// MaxQueriesPerIteration bounds how many search queries one search
	// round may issue.
	// Default: 3, Range: 1-10
	MaxQueriesPerIteration int `yaml:"max_queries_per_iteration"`

	// ConfidenceThreshold is the overall confidence at which the
	// investigation may stop early.
	// Default: 0.7, Range: (0, 1]
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// RequestTimeout applies to each outbound HTTP request.
	// Default: 30s
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxParallelExtractions bounds the extraction fan-out width.
	// Default: 10, Range: 1-50
	MaxParallelExtractions int `yaml:"max_parallel_extractions"`

	// OutputDir is where reports and snapshots are written.
	// Default: "reports"
	OutputDir string `yaml:"output_dir"`

	// DatabasePath is the SQLite file for run history and audit trails.
	// Default: "sleuth.db"
	DatabasePath string `yaml:"database_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxDepth:               5,
		MaxQueriesPerIteration: 3,
		ConfidenceThreshold:    0.7,
		RequestTimeout:         Duration(30 * time.Second),
		MaxParallelExtractions: 10,
		OutputDir:              "reports",
		DatabasePath:           "sleuth.db",
	}
}

// Validate checks that every field is within its allowed range.
func (c Config) Validate() error {
	if c.MaxDepth < 1 || c.MaxDepth > 20 {
		return fmt.Errorf("max_depth must be between 1 and 20 (got %d)", c.MaxDepth)
	}
	if c.MaxQueriesPerIteration < 1 || c.MaxQueriesPerIteration > 10 {
		return fmt.Errorf("max_queries_per_iteration must be between 1 and 10 (got %d)",
			c.MaxQueriesPerIteration)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in (0, 1] (got %g)", c.ConfidenceThreshold)
	}
	if c.Timeout() < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s (got %s)", c.Timeout())
	}
	if c.MaxParallelExtractions < 1 || c.MaxParallelExtractions > 50 {
		return fmt.Errorf("max_parallel_extractions must be between 1 and 50 (got %d)",
			c.MaxParallelExtractions)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	return nil
}

// Timeout returns the request timeout as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

// StepBudget is the hard ceiling on graph node executions, derived from
// the iteration bound. The multiplier covers the distinct node kinds one
// iteration can visit plus the terminal report.
func (c Config) StepBudget() int {
	return c.MaxDepth*6 + 2
}

// String returns a human-readable representation of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{MaxDepth: %d, MaxQueries: %d, ConfidenceThreshold: %.2f, "+
			"Timeout: %s, MaxParallel: %d, OutputDir: %s, Database: %s}",
		c.MaxDepth, c.MaxQueriesPerIteration, c.ConfidenceThreshold,
		c.Timeout(), c.MaxParallelExtractions, c.OutputDir, c.DatabasePath,
	)
}

// Load builds the effective configuration: defaults, overlaid with the
// YAML file at path (if path is non-empty; a missing explicit file is an
// error), overlaid with environment variables.
//
// Environment variables:
//   - SLEUTH_MAX_DEPTH: maximum refinement iterations (default: 5)
//   - SLEUTH_MAX_QUERIES: search queries per iteration (default: 3)
//   - SLEUTH_CONFIDENCE_THRESHOLD: early-stop confidence (default: 0.7)
//   - SLEUTH_REQUEST_TIMEOUT: per-request timeout, e.g. "30s" (default: 30s)
//   - SLEUTH_MAX_PARALLEL: extraction fan-out width (default: 10)
//   - SLEUTH_OUTPUT_DIR: report output directory (default: reports)
//   - SLEUTH_DB_PATH: SQLite database path (default: sleuth.db)
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := parseEnvInt("SLEUTH_MAX_DEPTH", &cfg.MaxDepth); err != nil {
		return err
	}
	if err := parseEnvInt("SLEUTH_MAX_QUERIES", &cfg.MaxQueriesPerIteration); err != nil {
		return err
	}
	if err := parseEnvFloat("SLEUTH_CONFIDENCE_THRESHOLD", &cfg.ConfidenceThreshold); err != nil {
		return err
	}
	if err := parseEnvDuration("SLEUTH_REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := parseEnvInt("SLEUTH_MAX_PARALLEL", &cfg.MaxParallelExtractions); err != nil {
		return err
	}
	parseEnvString("SLEUTH_OUTPUT_DIR", &cfg.OutputDir)
	parseEnvString("SLEUTH_DB_PATH", &cfg.DatabasePath)
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvDuration(key string, dest *Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = Duration(parsed)
	return nil
}

func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}
