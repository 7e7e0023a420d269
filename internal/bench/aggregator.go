package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/torosent/docsurge/internal/executor"
	"github.com/torosent/docsurge/internal/store"
)

// secondsPerMonth projects a per-second rate onto a 30-day month.
const secondsPerMonth = 86400 * 30

// Progress is one sampled view of the run, with cumulative rates and the
// rates local to the most recent sampling interval.
type Progress struct {
	Elapsed              time.Duration
	Inserted             int64
	WritesPerSec         float64
	UnitsPerSec          float64
	MonthlyUnits         float64
	IntervalWritesPerSec float64
	IntervalUnitsPerSec  float64
}

// sample is a raw counter reading at a point in time.
type sample struct {
	elapsed  float64 // seconds since the aggregator started
	inserted int64
	units    float64
}

// computeProgress derives rate metrics from the current reading and the
// previous interval's reading. On the first interval last is the zero sample,
// so the interval rates equal the cumulative ones. A zero or negative
// interval (sampling clock anomaly) falls back to the cumulative rates
// instead of dividing by it.
func computeProgress(cur, last sample) Progress {
	p := Progress{
		Elapsed:  time.Duration(cur.elapsed * float64(time.Second)),
		Inserted: cur.inserted,
	}
	if cur.elapsed > 0 {
		p.WritesPerSec = float64(cur.inserted) / cur.elapsed
		p.UnitsPerSec = cur.units / cur.elapsed
		p.MonthlyUnits = p.UnitsPerSec * secondsPerMonth
	}

	dt := cur.elapsed - last.elapsed
	if dt > 0 {
		p.IntervalWritesPerSec = float64(cur.inserted-last.inserted) / dt
		p.IntervalUnitsPerSec = (cur.units - last.units) / dt
	} else {
		p.IntervalWritesPerSec = p.WritesPerSec
		p.IntervalUnitsPerSec = p.UnitsPerSec
	}
	return p
}

// aggregator polls the shared counters once per interval, prints a progress
// line, and upserts a snapshot document to the metrics sink. It terminates
// when the pending-worker count reaches zero.
type aggregator struct {
	counters   *Counters
	sink       Upserter // nil disables snapshot emission
	instanceID string
	host       string
	ttlSeconds int
	interval   time.Duration
	out        io.Writer
	errOut     io.Writer
	retryLog   executor.RetryLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func (a *aggregator) run(ctx context.Context) {
	start := a.now()
	var last sample

	for a.counters.Pending() > 0 {
		a.sleep(ctx, a.interval)
		if ctx.Err() != nil {
			break
		}

		cur := a.read(start)
		p := computeProgress(cur, last)

		fmt.Fprintf(a.out, "Inserted %d docs @ %.0f writes/s (interval %.0f/s), %.0f RU/s, projected monthly: %.2fB RU\n",
			p.Inserted, p.WritesPerSec, p.IntervalWritesPerSec, p.UnitsPerSec, p.MonthlyUnits/1e9)

		a.emit(ctx, p)

		if cur.elapsed > last.elapsed {
			last = cur
		}
	}

	// The final summary is not gated by the cadence; it reflects the true
	// end-of-run totals.
	final := computeProgress(a.read(start), sample{})
	fmt.Fprintf(a.out, "\nInserted %d documents in %s: %.0f writes/s, %.0f RU/s, projected monthly: %.2fB RU\n",
		final.Inserted, final.Elapsed.Round(time.Millisecond), final.WritesPerSec, final.UnitsPerSec, final.MonthlyUnits/1e9)
}

func (a *aggregator) read(start time.Time) sample {
	return sample{
		elapsed:  a.now().Sub(start).Seconds(),
		inserted: a.counters.Inserted(),
		units:    a.counters.TotalUnits(),
	}
}

// emit upserts the snapshot document keyed by the fixed instance id. Failure
// here is logged and never interrupts the sampling loop.
func (a *aggregator) emit(ctx context.Context, p Progress) {
	if a.sink == nil {
		return
	}

	fields := map[string]any{
		"id":                      a.instanceID,
		"kind":                    "docsurge-status",
		"host":                    a.host,
		"timestamp":               a.now().UTC().Format(time.RFC3339Nano),
		"documents_inserted":      p.Inserted,
		"writes_per_sec":          p.WritesPerSec,
		"units_per_sec":           p.UnitsPerSec,
		"projected_monthly":       p.MonthlyUnits,
		"interval_writes_per_sec": p.IntervalWritesPerSec,
		"interval_units_per_sec":  p.IntervalUnitsPerSec,
		"ttl":                     a.ttlSeconds,
	}

	var execOpts []executor.Option
	if a.retryLog != nil {
		execOpts = append(execOpts, executor.WithRetryLogging(a.retryLog))
	}
	_, err := executor.Execute(ctx, func(ctx context.Context) (store.Response, error) {
		return a.sink.UpsertDocument(ctx, fields, a.instanceID)
	}, execOpts...)
	if err != nil {
		fmt.Fprintf(a.errOut, "metrics snapshot upsert failed: %v\n", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
