package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds every knob for a benchmark run.
type Config struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Key               string        `mapstructure:"key"`
	Database          string        `mapstructure:"database"`
	Collection        string        `mapstructure:"collection"`
	MetricsCollection string        `mapstructure:"metrics_collection"`
	PartitionKeyPath  string        `mapstructure:"partition_key_path"`
	Throughput        int           `mapstructure:"throughput"`
	Parallelism       int           `mapstructure:"parallelism"`
	TotalDocuments    int           `mapstructure:"total_documents"`
	TemplateFile      string        `mapstructure:"template_file"`
	Rate              int           `mapstructure:"rate"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CleanupOnStart    bool          `mapstructure:"cleanup_on_start"`
	CleanupOnFinish   bool          `mapstructure:"cleanup_on_finish"`
	LogRetries        bool          `mapstructure:"log_retries"`
	JSONOutput        bool          `mapstructure:"json_output"`
	Dashboard         bool          `mapstructure:"dashboard"`
	Insecure          bool          `mapstructure:"insecure"`
	Tracing           TracingConfig `mapstructure:"tracing"`
	ConfigFile        string        `mapstructure:"-"`
}

// TracingConfig mirrors tracing.Config for file/flag loading.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// ValidationError aggregates every configuration issue found.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.Endpoint) == "" {
		issues = append(issues, "endpoint is required")
	}
	if strings.TrimSpace(c.Key) == "" {
		issues = append(issues, "key is required (flag, config file, or DOCSURGE_KEY)")
	}
	if strings.TrimSpace(c.Database) == "" {
		issues = append(issues, "database is required")
	}
	if strings.TrimSpace(c.Collection) == "" {
		issues = append(issues, "collection is required")
	}
	if strings.TrimSpace(c.MetricsCollection) == "" {
		issues = append(issues, "metrics-collection is required")
	}
	if c.Collection != "" && c.Collection == c.MetricsCollection {
		issues = append(issues, "metrics-collection must differ from collection")
	}
	if !strings.HasPrefix(c.PartitionKeyPath, "/") || strings.Count(c.PartitionKeyPath, "/") != 1 || len(c.PartitionKeyPath) < 2 {
		issues = append(issues, fmt.Sprintf("partition-key-path %q must name a single top-level field, e.g. /partitionKey", c.PartitionKeyPath))
	}
	if c.Parallelism < 1 {
		issues = append(issues, "parallelism must be >= 1")
	}
	if c.TotalDocuments < 1 {
		issues = append(issues, "total-documents must be >= 1")
	}
	if c.Throughput < 0 {
		issues = append(issues, "throughput must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if strings.TrimSpace(c.TemplateFile) == "" {
		issues = append(issues, "template is required")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if c.Parallelism > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High parallelism configured (%d workers). Ensure the target account can absorb the load.", c.Parallelism))
	}
	if c.Throughput > 100000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: Provisioning %d throughput units; this accrues cost until the collection is deleted.", c.Throughput))
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
