// Package config loads benchmark configuration from a JSON/YAML file and
// command-line flags; flags win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. The master key may also arrive through the DOCSURGE_KEY
// environment variable so it never shows up in shell history.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Database:          "benchmarkdb",
		Collection:        "benchmarkcoll",
		MetricsCollection: "metrics",
		PartitionKeyPath:  "/partitionKey",
		Throughput:        10000,
		Parallelism:       8,
		TotalDocuments:    100000,
		Timeout:           30 * time.Second,
		Tracing:           TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:        configPath,
	}

	if err := cfgViper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	if cfg.Key == "" {
		cfg.Key = os.Getenv("DOCSURGE_KEY")
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.TemplateFile = strings.TrimSpace(cfg.TemplateFile)
	cfg.PartitionKeyPath = strings.TrimSpace(cfg.PartitionKeyPath)

	return cfg, nil
}
