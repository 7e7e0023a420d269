package bench

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/torosent/docsurge/internal/doc"
	"github.com/torosent/docsurge/internal/executor"
	"github.com/torosent/docsurge/internal/metrics"
)

// Options configures a benchmark run.
type Options struct {
	Workers        int
	TotalDocuments int
	Template       *doc.Template
	Target         Inserter
	Sink           Upserter // optional metrics sink
	Collector      *metrics.Collector
	RatePerSecond  int           // optional cap on aggregate writes/s (0 = unlimited)
	Interval       time.Duration // sampling cadence; defaults to 1s
	SnapshotTTL    int           // seconds before an unrefreshed snapshot expires
	InstanceID     string        // snapshot document id; defaults to host + run ULID
	Out            io.Writer     // progress lines
	ErrOut         io.Writer     // diagnostics
	Failures       FailureLogger
	RetryLog       executor.RetryLogger
}

func (o *Options) normalize() {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = 60
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.ErrOut == nil {
		o.ErrOut = io.Discard
	}
	if o.InstanceID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "docsurge"
		}
		o.InstanceID = host + "-" + ulid.Make().String()
	}
}

// Result captures the run summary.
type Result struct {
	Inserted   int64
	Failed     int64
	TotalUnits float64
	Duration   time.Duration
}

// Runner orchestrates the aggregator and the write workers.
type Runner struct {
	opt        Options
	counters   *Counters
	startNanos atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:      opt,
		counters: NewCounters(opt.Workers),
	}
}

// InstanceID returns the fixed snapshot identity for this run.
func (r *Runner) InstanceID() string { return r.opt.InstanceID }

// Run spawns the aggregator and all workers and waits for joint completion.
// The document target is divided evenly across workers with integer
// truncation; remainder documents are not produced.
func (r *Runner) Run(ctx context.Context) Result {
	opt := r.opt
	perWorker := opt.TotalDocuments / opt.Workers

	var limiter *rate.Limiter
	if opt.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opt.RatePerSecond), 1)
	}

	start := time.Now()
	r.startNanos.Store(start.UnixNano())

	agg := &aggregator{
		counters:   r.counters,
		sink:       opt.Sink,
		instanceID: opt.InstanceID,
		host:       hostname(),
		ttlSeconds: opt.SnapshotTTL,
		interval:   opt.Interval,
		out:        opt.Out,
		errOut:     opt.ErrOut,
		retryLog:   opt.RetryLog,
		now:        time.Now,
		sleep:      sleepContext,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		agg.run(ctx)
	}()

	wg.Add(opt.Workers)
	for i := 0; i < opt.Workers; i++ {
		worker := &Worker{
			ID:        i,
			Target:    opt.Target,
			Template:  opt.Template,
			Counters:  r.counters,
			Collector: opt.Collector,
			Limiter:   limiter,
			Failures:  opt.Failures,
			RetryLog:  opt.RetryLog,
		}
		go func() {
			defer wg.Done()
			worker.Run(ctx, perWorker)
		}()
	}
	wg.Wait()

	inserted := r.counters.Inserted()
	return Result{
		Inserted:   inserted,
		Failed:     int64(opt.Workers)*int64(perWorker) - inserted,
		TotalUnits: r.counters.TotalUnits(),
		Duration:   time.Since(start),
	}
}

// Progress returns the current cumulative view of the run; the dashboard
// polls it concurrently with Run.
func (r *Runner) Progress() Progress {
	startNanos := r.startNanos.Load()
	if startNanos == 0 {
		return Progress{}
	}
	elapsed := time.Since(time.Unix(0, startNanos)).Seconds()
	cur := sample{
		elapsed:  elapsed,
		inserted: r.counters.Inserted(),
		units:    r.counters.TotalUnits(),
	}
	return computeProgress(cur, sample{})
}

// Pending returns the number of workers still running.
func (r *Runner) Pending() int64 { return r.counters.Pending() }

// Target returns the configured total the run will actually attempt.
func (r *Runner) Target() int {
	return (r.opt.TotalDocuments / r.opt.Workers) * r.opt.Workers
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
