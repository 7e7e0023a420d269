// Package bench implements the concurrent write benchmark: N writer workers
// generating documents from a template, shared atomic counters, and a
// once-per-second statistics aggregator that prints progress and upserts
// snapshot documents to a metrics collection.
package bench
