package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docsurge",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target store
	flags.String("endpoint", "", "Document store endpoint URL")
	flags.String("key", "", "Base64 master key (prefer DOCSURGE_KEY over the flag)")
	flags.String("database", "benchmarkdb", "Database name")
	flags.String("collection", "benchmarkcoll", "Target collection name")
	flags.String("metrics-collection", "metrics", "Collection receiving per-second snapshot documents")
	flags.String("partition-key-path", "/partitionKey", "Partition key path declared on the target collection")
	flags.Int("throughput", 10000, "Provisioned throughput units for the target collection")
	flags.Bool("insecure", false, "Skip TLS verification (local emulator only)")

	// Workload
	flags.IntP("parallelism", "c", 8, "Number of concurrent writer workers")
	flags.IntP("total-documents", "t", 100000, "Total documents to insert, divided evenly across workers")
	flags.String("template", "", "Path to the JSON document template")
	flags.IntP("rate", "r", 0, "Aggregate writes per second limit (0 means unlimited)")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")

	// Lifecycle
	flags.Bool("cleanup-on-start", false, "Delete and recreate the database before the run")
	flags.Bool("cleanup-on-finish", false, "Delete the database after the run")

	// Output
	flags.Bool("log-retries", false, "Log each throttle retry wait to stderr")
	flags.Bool("json-output", false, "Emit JSON formatted final report")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.Bool("trace", false, "Enable OpenTelemetry tracing of store calls")
	flags.String("trace-endpoint", "", "OTLP endpoint (falls back to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("endpoint") {
		val, err := fs.GetString("endpoint")
		if err != nil {
			return err
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("key") {
		val, err := fs.GetString("key")
		if err != nil {
			return err
		}
		cfg.Key = strings.TrimSpace(val)
	}
	if fs.Changed("database") {
		val, err := fs.GetString("database")
		if err != nil {
			return err
		}
		cfg.Database = strings.TrimSpace(val)
	}
	if fs.Changed("collection") {
		val, err := fs.GetString("collection")
		if err != nil {
			return err
		}
		cfg.Collection = strings.TrimSpace(val)
	}
	if fs.Changed("metrics-collection") {
		val, err := fs.GetString("metrics-collection")
		if err != nil {
			return err
		}
		cfg.MetricsCollection = strings.TrimSpace(val)
	}
	if fs.Changed("partition-key-path") {
		val, err := fs.GetString("partition-key-path")
		if err != nil {
			return err
		}
		cfg.PartitionKeyPath = strings.TrimSpace(val)
	}
	if fs.Changed("throughput") {
		val, err := fs.GetInt("throughput")
		if err != nil {
			return err
		}
		cfg.Throughput = val
	}
	if fs.Changed("insecure") {
		val, err := fs.GetBool("insecure")
		if err != nil {
			return err
		}
		cfg.Insecure = val
	}
	if fs.Changed("parallelism") {
		val, err := fs.GetInt("parallelism")
		if err != nil {
			return err
		}
		cfg.Parallelism = val
	}
	if fs.Changed("total-documents") {
		val, err := fs.GetInt("total-documents")
		if err != nil {
			return err
		}
		cfg.TotalDocuments = val
	}
	if fs.Changed("template") {
		val, err := fs.GetString("template")
		if err != nil {
			return err
		}
		cfg.TemplateFile = strings.TrimSpace(val)
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("cleanup-on-start") {
		val, err := fs.GetBool("cleanup-on-start")
		if err != nil {
			return err
		}
		cfg.CleanupOnStart = val
	}
	if fs.Changed("cleanup-on-finish") {
		val, err := fs.GetBool("cleanup-on-finish")
		if err != nil {
			return err
		}
		cfg.CleanupOnFinish = val
	}
	if fs.Changed("log-retries") {
		val, err := fs.GetBool("log-retries")
		if err != nil {
			return err
		}
		cfg.LogRetries = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}

	return nil
}
