package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const testMasterKey = "dGVzdC1tYXN0ZXIta2V5"

func writeTemplate(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunHelpIsNotAnError(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	t.Setenv("DOCSURGE_KEY", "")
	err := run([]string{"--endpoint", "https://account.documents.example"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "key is required") {
		t.Errorf("expected key issue, got: %v", err)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	if err := run([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

// TestRunEndToEnd drives a full benchmark against a stub store: provisioning
// reads, document writes with charges, and the status snapshot upsert.
func TestRunEndToEnd(t *testing.T) {
	var docWrites, snapshotWrites atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/dbs/benchmarkdb":
			w.Write([]byte(`{"id":"benchmarkdb"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/dbs/benchmarkdb/colls/benchmarkcoll":
			w.Write([]byte(`{"id":"benchmarkcoll","partitionKey":{"paths":["/partitionKey"],"kind":"Hash"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/dbs/benchmarkdb/colls/metrics":
			w.Write([]byte(`{"id":"metrics","partitionKey":{"paths":["/id"],"kind":"Hash"},"defaultTtl":-1}`))
		case r.Method == http.MethodPost && r.URL.Path == "/dbs/benchmarkdb/colls/benchmarkcoll/docs":
			docWrites.Add(1)
			w.Header().Set("X-Ms-Request-Charge", "5.71")
			w.Header().Set("X-Ms-Session-Token", "0:100")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && r.URL.Path == "/dbs/benchmarkdb/colls/metrics/docs":
			if r.Header.Get("X-Ms-Documentdb-Is-Upsert") != "true" {
				t.Errorf("snapshot write must be an upsert")
			}
			snapshotWrites.Add(1)
			w.Header().Set("X-Ms-Request-Charge", "10.0")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	template := writeTemplate(t, `{"name":"player","score":100}`)

	err := run([]string{
		"--endpoint", srv.URL,
		"--key", testMasterKey,
		"--template", template,
		"-c", "2",
		"-t", "4",
		"--json-output",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := docWrites.Load(); got != 4 {
		t.Errorf("expected 4 document writes, got %d", got)
	}
	if snapshotWrites.Load() < 1 {
		t.Error("expected at least one status snapshot upsert")
	}
}

func TestRunSurfacesFailedWrites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			switch r.URL.Path {
			case "/dbs/benchmarkdb":
				w.Write([]byte(`{"id":"benchmarkdb"}`))
			case "/dbs/benchmarkdb/colls/benchmarkcoll":
				w.Write([]byte(`{"id":"benchmarkcoll","partitionKey":{"paths":["/partitionKey"],"kind":"Hash"}}`))
			default:
				w.Write([]byte(`{"id":"metrics","partitionKey":{"paths":["/id"],"kind":"Hash"}}`))
			}
		case strings.Contains(r.URL.Path, "/colls/metrics/"):
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		default:
			// Every document write is terminally rejected.
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"BadRequest","message":"malformed document"}`))
		}
	}))
	defer srv.Close()

	template := writeTemplate(t, `{"name":"player"}`)

	err := run([]string{
		"--endpoint", srv.URL,
		"--key", testMasterKey,
		"--template", template,
		"-c", "1",
		"-t", "2",
		"--json-output",
	})
	if err == nil {
		t.Fatal("expected error for failed writes")
	}
	if !strings.Contains(err.Error(), "2 writes failed") {
		t.Errorf("unexpected error: %v", err)
	}
}
