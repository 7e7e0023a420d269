// Package dashboard renders a live terminal view of an in-flight write
// benchmark.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/docsurge/internal/bench"
	"github.com/torosent/docsurge/internal/metrics"
)

// RunConfig holds benchmark parameters for display.
type RunConfig struct {
	Endpoint   string
	Database   string
	Collection string
	Workers    int
	Total      int // documents the run will attempt
	Rate       int // writes per second cap (0 = unlimited)
	Timeout    time.Duration
	ConfigFile string
}

// Dashboard polls the runner and collector on a fixed cadence and draws
// the widgets until Stop is called.
type Dashboard struct {
	runner       *bench.Runner
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid            *ui.Grid
	summaryPara     *widgets.Paragraph
	completionGauge *widgets.Gauge
	writesSparkle   *widgets.SparklineGroup
	unitsPara       *widgets.Paragraph
	latencyPara     *widgets.Paragraph
	metricsPara     *widgets.Paragraph
	writesHistory   []float64
	startTime       time.Time
	runConfig       RunConfig
}

// New creates a Dashboard. shutdownFunc is invoked when the user presses q
// or Ctrl-C; it should cancel the benchmark context.
func New(runner *bench.Runner, collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		runner:        runner,
		collector:     collector,
		ctx:           ctx,
		cancel:        cancel,
		shutdownFunc:  shutdownFunc,
		writesHistory: make([]float64, 0, 100),
		startTime:     time.Now(),
		runConfig:     cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Writes/s"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.writesSparkle = widgets.NewSparklineGroup(sparkline)
	d.writesSparkle.Title = "Write Throughput"
	d.writesSparkle.BorderStyle.Fg = ui.ColorCyan

	d.completionGauge = widgets.NewGauge()
	d.completionGauge.Title = "Completion"
	d.completionGauge.Percent = 0
	d.completionGauge.BarColor = ui.ColorBlue
	d.completionGauge.BorderStyle.Fg = ui.ColorCyan
	d.completionGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.unitsPara = widgets.NewParagraph()
	d.unitsPara.Title = "Request Units"
	d.unitsPara.Text = "Waiting for data..."
	d.unitsPara.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Write Latency"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Counters"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.completionGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.65, d.writesSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(1.0, d.unitsPara),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes widget data from the runner and the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	progress := d.runner.Progress()
	stats := d.collector.Stats(elapsed)

	d.writesHistory = append(d.writesHistory, progress.IntervalWritesPerSec)
	if len(d.writesHistory) > 100 {
		d.writesHistory = d.writesHistory[1:]
	}
	d.writesSparkle.Sparklines[0].Data = d.writesHistory
	d.writesSparkle.Title = fmt.Sprintf(
		"Write Throughput | Current: %.0f/s | Cumulative: %.0f/s",
		progress.IntervalWritesPerSec,
		progress.WritesPerSec,
	)

	target := d.runner.Target()
	d.completionGauge.Percent = completionPercent(progress.Inserted, target)
	d.completionGauge.Label = fmt.Sprintf("%d / %d docs", progress.Inserted, target)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s (%s/%s)\n%s\nElapsed: %s | Inserted: %d | Success Rate: %.1f%%",
		d.runConfig.Endpoint,
		d.runConfig.Database,
		d.runConfig.Collection,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		progress.Inserted,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Attempted:   %d\nSucceeded:   %d\nFailed:      %d\nPending workers: %d",
		stats.Total,
		stats.Successes,
		stats.Failures,
		d.runner.Pending(),
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.unitsPara.Text = fmt.Sprintf(
		"RU/s:              %.1f (interval %.1f)\nRU per write:      %.2f\nTotal RU:          %s\nProjected monthly: %s RU",
		progress.UnitsPerSec,
		progress.IntervalUnitsPerSec,
		stats.UnitsPerWrite,
		formatUnits(stats.TotalUnits),
		formatUnits(progress.MonthlyUnits),
	)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

// completionPercent clamps to [0,100]; a zero target reads as complete so the
// gauge never divides by zero.
func completionPercent(inserted int64, target int) int {
	if target <= 0 {
		return 100
	}
	pct := int(inserted * 100 / int64(target))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// formatUnits renders a request-unit total with a magnitude suffix.
func formatUnits(units float64) string {
	switch {
	case units >= 1e9:
		return fmt.Sprintf("%.2fB", units/1e9)
	case units >= 1e6:
		return fmt.Sprintf("%.2fM", units/1e6)
	case units >= 1e3:
		return fmt.Sprintf("%.1fK", units/1e3)
	default:
		return fmt.Sprintf("%.1f", units)
	}
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Workers > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Workers))
	}

	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.runConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.runConfig.Total))
	}

	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
