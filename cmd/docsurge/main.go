package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/torosent/docsurge/internal/bench"
	"github.com/torosent/docsurge/internal/config"
	"github.com/torosent/docsurge/internal/dashboard"
	"github.com/torosent/docsurge/internal/doc"
	"github.com/torosent/docsurge/internal/executor"
	"github.com/torosent/docsurge/internal/metrics"
	"github.com/torosent/docsurge/internal/output"
	"github.com/torosent/docsurge/internal/store"
	"github.com/torosent/docsurge/internal/tracing"
)

const (
	progressInterval = time.Second
	snapshotTTL      = 60 // seconds before a stale status document expires
	shutdownTimeout  = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

type stderrRetryLogger struct {
	mu sync.Mutex
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracer, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "tracing shutdown: %v\n", err)
		}
	}()

	// One extra connection each for the aggregator and lifecycle calls.
	client, err := store.NewClient(store.Options{
		Endpoint: cfg.Endpoint,
		Key:      cfg.Key,
		Timeout:  cfg.Timeout,
		MaxConns: cfg.Parallelism + 2,
		Insecure: cfg.Insecure,
		Tracer:   tracer.Tracer(),
	})
	if err != nil {
		return err
	}

	var retryLog executor.RetryLogger
	if cfg.LogRetries {
		retryLog = &stderrRetryLogger{}
	}

	target, sink, pkPath, err := provision(ctx, client, cfg, retryLog)
	if err != nil {
		return err
	}

	template, err := doc.Load(cfg.TemplateFile)
	if err != nil {
		return err
	}
	if err := template.BindPartitionKey(pkPath); err != nil {
		return err
	}

	collector := metrics.NewCollector()

	progressOut := io.Writer(os.Stdout)
	if cfg.JSONOutput || cfg.Dashboard {
		progressOut = io.Discard
	}

	runner := bench.New(bench.Options{
		Workers:        cfg.Parallelism,
		TotalDocuments: cfg.TotalDocuments,
		Template:       template,
		Target:         target,
		Sink:           sink,
		Collector:      collector,
		RatePerSecond:  cfg.Rate,
		Interval:       progressInterval,
		SnapshotTTL:    snapshotTTL,
		Out:            progressOut,
		ErrOut:         os.Stderr,
		Failures:       &stderrFailureLogger{},
		RetryLog:       retryLog,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(runner, collector, dashboard.RunConfig{
			Endpoint:   cfg.Endpoint,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Workers:    cfg.Parallelism,
			Total:      runner.Target(),
			Rate:       cfg.Rate,
			Timeout:    cfg.Timeout,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	// Mark the actual start time in the collector so the dashboard computes
	// rates from when the writes actually began.
	collector.Start()
	result := runner.Run(ctx)
	stats := collector.Stats(result.Duration)

	if dash != nil {
		dash.Stop()
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if cfg.CleanupOnFinish {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cleanupCancel()
		if err := client.DeleteDatabase(cleanupCtx, cfg.Database); err != nil {
			return err
		}
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d writes failed", result.Failed)
	}
	return nil
}

// provision prepares the database and both collections and returns containers
// for the benchmark target and the metrics sink, plus the partition key path
// the target collection actually declares. All lifecycle calls go through the
// retry executor so a throttled control plane cannot fail the run.
func provision(ctx context.Context, client *store.Client, cfg *config.Config, retryLog executor.RetryLogger) (*store.Container, *store.Container, string, error) {
	var execOpts []executor.Option
	if retryLog != nil {
		execOpts = append(execOpts, executor.WithRetryLogging(retryLog))
	}

	if cfg.CleanupOnStart {
		_, err := executor.Execute(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, client.DeleteDatabase(ctx, cfg.Database)
		}, execOpts...)
		if err != nil {
			return nil, nil, "", err
		}
	}

	_, err := executor.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.EnsureDatabase(ctx, cfg.Database)
	}, execOpts...)
	if err != nil {
		return nil, nil, "", err
	}

	targetCol, err := executor.Execute(ctx, func(ctx context.Context) (store.Collection, error) {
		return client.EnsureCollection(ctx, cfg.Database, cfg.Collection, store.CollectionOptions{
			PartitionKeyPath: cfg.PartitionKeyPath,
			Throughput:       cfg.Throughput,
		})
	}, execOpts...)
	if err != nil {
		return nil, nil, "", err
	}

	// Snapshot documents are keyed and partitioned by their id, and carry a
	// per-document ttl; DefaultTTL -1 turns ttl enforcement on without
	// expiring anything by default.
	_, err = executor.Execute(ctx, func(ctx context.Context) (store.Collection, error) {
		return client.EnsureCollection(ctx, cfg.Database, cfg.MetricsCollection, store.CollectionOptions{
			PartitionKeyPath: "/id",
			DefaultTTL:       -1,
		})
	}, execOpts...)
	if err != nil {
		return nil, nil, "", err
	}

	pkPath := cfg.PartitionKeyPath
	if len(targetCol.PartitionKey.Paths) > 0 && targetCol.PartitionKey.Paths[0] != "" {
		// A pre-existing collection's declared path wins over configuration.
		pkPath = targetCol.PartitionKey.Paths[0]
	}

	return client.Container(cfg.Database, cfg.Collection),
		client.Container(cfg.Database, cfg.MetricsCollection),
		pkPath, nil
}

func (l *stderrFailureLogger) LogFailure(payload []byte, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[docsurge] write failed: %v payload=%s\n", err, payload)
}

func (l *stderrRetryLogger) LogRetry(wait time.Duration, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[docsurge] retrying in %s: %v\n", wait, err)
}
