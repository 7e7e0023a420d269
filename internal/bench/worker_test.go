package bench_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/torosent/docsurge/internal/bench"
	"github.com/torosent/docsurge/internal/doc"
	"github.com/torosent/docsurge/internal/store"
)

// fakeTarget records every created document and can fail selected calls.
type fakeTarget struct {
	mu       sync.Mutex
	docs     []map[string]any
	calls    int
	failCall func(n int) error // 1-based call number; nil error = success
	charge   float64
	token    string
}

func (f *fakeTarget) CreateDocument(_ context.Context, fields map[string]any, _ string) (store.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failCall != nil {
		if err := f.failCall(f.calls); err != nil {
			return store.Response{}, err
		}
	}
	f.docs = append(f.docs, fields)
	return store.Response{StatusCode: 201, Charge: f.charge, SessionToken: f.token}, nil
}

type capturedFailure struct {
	payload []byte
	err     error
}

type captureFailures struct {
	mu       sync.Mutex
	failures []capturedFailure
}

func (c *captureFailures) LogFailure(payload []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, capturedFailure{payload: payload, err: err})
}

func newTemplate(t *testing.T) *doc.Template {
	t.Helper()
	tmpl := doc.New(map[string]any{"kind": "bench-doc", "payload": "x"})
	if err := tmpl.BindPartitionKey("/partitionKey"); err != nil {
		t.Fatal(err)
	}
	return tmpl
}

// TestWorkerProducesDistinctDocuments verifies a 5-document run yields 5
// distinct ids and partition key values and settles the counters.
func TestWorkerProducesDistinctDocuments(t *testing.T) {
	target := &fakeTarget{charge: 6.29, token: "0:12345"}
	counters := bench.NewCounters(1)

	w := &bench.Worker{
		ID:       0,
		Target:   target,
		Template: newTemplate(t),
		Counters: counters,
	}
	w.Run(context.Background(), 5)

	if len(target.docs) != 5 {
		t.Fatalf("expected 5 documents, got %d", len(target.docs))
	}
	ids := map[any]bool{}
	pks := map[any]bool{}
	for _, fields := range target.docs {
		ids[fields["id"]] = true
		pks[fields["partitionKey"]] = true
	}
	if len(ids) != 5 || len(pks) != 5 {
		t.Errorf("expected 5 distinct ids and partition keys, got %d and %d", len(ids), len(pks))
	}

	if got := counters.Inserted(); got != 5 {
		t.Errorf("expected 5 inserted, got %d", got)
	}
	if got := counters.WorkerUnits(0); got != 5*6.29 {
		t.Errorf("expected %g units, got %g", 5*6.29, got)
	}
	if got := counters.Pending(); got != 0 {
		t.Errorf("expected pending 0 after run, got %d", got)
	}
	if got := w.LastPartition(); got != "0" {
		t.Errorf("expected partition \"0\" from session token, got %q", got)
	}
}

// TestWorkerSurvivesDocumentFailures verifies a failed document is logged
// and skipped, and the pending counter is still decremented exactly once.
func TestWorkerSurvivesDocumentFailures(t *testing.T) {
	rejected := errors.New("document rejected")
	target := &fakeTarget{
		charge: 1.0,
		failCall: func(n int) error {
			if n == 2 || n == 4 {
				return rejected
			}
			return nil
		},
	}
	counters := bench.NewCounters(1)
	failures := &captureFailures{}

	w := &bench.Worker{
		ID:       0,
		Target:   target,
		Template: newTemplate(t),
		Counters: counters,
		Failures: failures,
	}
	w.Run(context.Background(), 5)

	if got := counters.Inserted(); got != 3 {
		t.Errorf("expected 3 inserted, got %d", got)
	}
	if got := counters.Pending(); got != 0 {
		t.Errorf("expected pending 0, got %d", got)
	}
	if len(failures.failures) != 2 {
		t.Fatalf("expected 2 logged failures, got %d", len(failures.failures))
	}
	for _, f := range failures.failures {
		if !errors.Is(f.err, rejected) {
			t.Errorf("expected rejection error, got %v", f.err)
		}
		if len(f.payload) == 0 {
			t.Error("expected serialized payload in failure log")
		}
	}
	if got := counters.WorkerUnits(0); got != 3.0 {
		t.Errorf("expected 3.0 units, got %g", got)
	}
}

func TestWorkerZeroTargetStillDecrementsPending(t *testing.T) {
	counters := bench.NewCounters(1)
	w := &bench.Worker{
		ID:       0,
		Target:   &fakeTarget{},
		Template: newTemplate(t),
		Counters: counters,
	}
	w.Run(context.Background(), 0)
	if got := counters.Pending(); got != 0 {
		t.Errorf("expected pending 0, got %d", got)
	}
}
