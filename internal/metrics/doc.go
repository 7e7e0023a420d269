// Package metrics aggregates per-write latency and request charge samples
// into the summary statistics reported at the end of a run.
package metrics
