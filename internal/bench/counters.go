package bench

import (
	"math"
	"sync/atomic"
)

// Counters is the state shared between workers and the aggregator. The two
// global counters are plain atomics; per-worker cost-unit accumulators are
// single-writer slots the aggregator reads without locking.
type Counters struct {
	inserted atomic.Int64
	pending  atomic.Int64
	units    []unitSlot
}

// unitSlot holds one worker's cost-unit accumulator, padded out to a cache
// line so concurrent workers do not share one.
type unitSlot struct {
	bits atomic.Uint64
	_    [56]byte
}

// NewCounters creates counters for the given worker count. The pending
// counter starts at workers and reaches zero when every worker has exited.
func NewCounters(workers int) *Counters {
	c := &Counters{units: make([]unitSlot, workers)}
	c.pending.Store(int64(workers))
	return c
}

// Workers returns the number of per-worker slots.
func (c *Counters) Workers() int { return len(c.units) }

// RecordInsert increments the global inserted-document counter.
func (c *Counters) RecordInsert() { c.inserted.Add(1) }

// Inserted returns the documents inserted so far.
func (c *Counters) Inserted() int64 { return c.inserted.Load() }

// AddUnits adds charge to the worker's accumulator. Each slot has exactly
// one writer; the CAS loop only makes the update visible to concurrent
// aggregator reads.
func (c *Counters) AddUnits(worker int, charge float64) {
	slot := &c.units[worker]
	for {
		old := slot.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + charge)
		if slot.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// WorkerUnits returns one worker's accumulated cost units.
func (c *Counters) WorkerUnits(worker int) float64 {
	return math.Float64frombits(c.units[worker].bits.Load())
}

// TotalUnits sums every worker's accumulator. The result is an eventually
// consistent snapshot: at most one in-flight increment stale per worker.
func (c *Counters) TotalUnits() float64 {
	var total float64
	for i := range c.units {
		total += math.Float64frombits(c.units[i].bits.Load())
	}
	return total
}

// WorkerDone decrements the pending-worker counter. Each worker calls this
// exactly once on exit.
func (c *Counters) WorkerDone() { c.pending.Add(-1) }

// Pending returns the number of workers still running.
func (c *Counters) Pending() int64 { return c.pending.Load() }
