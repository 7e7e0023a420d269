// Package output renders the end-of-run reports.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/docsurge/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Write Benchmark Results ---")
	fmt.Fprintf(w, "Total Writes:      %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Writes/sec:        %.2f\n", stats.WritesPerSec)
	fmt.Fprintln(w, "\nRequest Units:")
	fmt.Fprintf(w, "  Total:           %.2f\n", stats.TotalUnits)
	fmt.Fprintf(w, "  Per Second:      %.2f\n", stats.UnitsPerSec)
	fmt.Fprintf(w, "  Per Write:       %.2f\n", stats.UnitsPerWrite)
	fmt.Fprintf(w, "  Monthly (proj.): %.2fB\n", stats.MonthlyUnits/1e9)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
