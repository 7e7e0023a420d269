package bench

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/docsurge/internal/doc"
	"github.com/torosent/docsurge/internal/executor"
	"github.com/torosent/docsurge/internal/metrics"
	"github.com/torosent/docsurge/internal/store"
)

// Inserter creates documents in the benchmark's target collection.
type Inserter interface {
	CreateDocument(ctx context.Context, fields map[string]any, partitionKey string) (store.Response, error)
}

// Upserter replaces documents in the metrics collection.
type Upserter interface {
	UpsertDocument(ctx context.Context, fields map[string]any, partitionKey string) (store.Response, error)
}

// FailureLogger records per-document write failures with their payload.
type FailureLogger interface {
	LogFailure(payload []byte, err error)
}

// Worker drives one write loop. Each worker owns its slot in Counters and a
// private materialized document per iteration, so no locking is needed.
type Worker struct {
	ID        int
	Target    Inserter
	Template  *doc.Template
	Counters  *Counters
	Collector *metrics.Collector // optional
	Limiter   *rate.Limiter      // optional, shared pacing
	Failures  FailureLogger      // optional
	RetryLog  executor.RetryLogger

	lastPartition string
}

// Run writes targetCount documents. A single failed document is logged and
// skipped; the loop never aborts for it. The pending-worker counter is
// decremented exactly once on exit.
func (w *Worker) Run(ctx context.Context, targetCount int) {
	defer w.Counters.WorkerDone()

	var execOpts []executor.Option
	if w.RetryLog != nil {
		execOpts = append(execOpts, executor.WithRetryLogging(w.RetryLog))
	}

	for i := 0; i < targetCount; i++ {
		if ctx.Err() != nil {
			return
		}
		if w.Limiter != nil {
			if err := w.Limiter.Wait(ctx); err != nil {
				return
			}
		}

		fields, _, pk := w.Template.Materialize()

		start := time.Now()
		resp, err := executor.Execute(ctx, func(ctx context.Context) (store.Response, error) {
			return w.Target.CreateDocument(ctx, fields, pk)
		}, execOpts...)
		latency := time.Since(start)

		if err != nil {
			if w.Collector != nil {
				w.Collector.RecordWrite(latency, 0, err)
			}
			if w.Failures != nil {
				payload, _ := json.Marshal(fields)
				w.Failures.LogFailure(payload, err)
			}
			continue
		}

		// The token's leading segment names the partition that served the
		// write; kept for diagnostics only.
		if partition, _, ok := strings.Cut(resp.SessionToken, ":"); ok {
			w.lastPartition = partition
		}

		w.Counters.AddUnits(w.ID, resp.Charge)
		w.Counters.RecordInsert()
		if w.Collector != nil {
			w.Collector.RecordWrite(latency, resp.Charge, nil)
		}
	}
}

// LastPartition returns the partition that served this worker's most recent
// successful write, or "" if none completed.
func (w *Worker) LastPartition() string { return w.lastPartition }
