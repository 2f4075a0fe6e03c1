package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// ProbeConfig holds probe parameters for display.
type ProbeConfig struct {
	TargetURL  string
	Method     string
	Rate       float64
	Duration   time.Duration
	Timeout    time.Duration
	Ceiling    int
	PresetFile string
}

// Dashboard renders a live terminal UI for a running probe.
type Dashboard struct {
	snapshot     func() metrics.Summary
	inflight     func() int64
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	rpsGauge       *widgets.Gauge
	statusList     *widgets.List
	errorList      *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	probeConfig    ProbeConfig
	finalSummary   metrics.Summary
}

// New creates a new Dashboard. The snapshot and inflight functions are polled
// on every refresh; shutdownFunc runs when the operator presses q.
func New(snapshot func() metrics.Summary, inflight func() int64, cfg ProbeConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		snapshot:       snapshot,
		inflight:       inflight,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		probeConfig:    cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Achieved vs Target RPS"
	d.rpsGauge.Percent = 0
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No errors"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorRed)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Probe Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	d.finalSummary = d.snapshot()
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// FinalSummary returns the summary captured when the dashboard stopped.
func (d *Dashboard) FinalSummary() metrics.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalSummary
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
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

// update refreshes all widget data from the live snapshot.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	summary := d.snapshot()

	if summary.MeanLatencyMs > 0 {
		d.latencyHistory = append(d.latencyHistory, summary.MeanLatencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			summary.MeanLatencyMs,
			summary.MinLatencyMs,
			summary.MaxLatencyMs,
		)
	}

	targetRate := d.probeConfig.Rate
	if targetRate <= 0 {
		targetRate = 1
	}
	rpsPercent := int((summary.AchievedRPS / targetRate) * 100)
	if rpsPercent > 100 {
		rpsPercent = 100
	}
	d.rpsGauge.Percent = rpsPercent
	d.rpsGauge.Label = fmt.Sprintf("%.1f / %.1f RPS", summary.AchievedRPS, d.probeConfig.Rate)

	successRate := 0.0
	if summary.Total > 0 {
		successRate = (float64(summary.Successes) / float64(summary.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s / %s | Attempts: %d | Success Rate: %.1f%%",
		d.probeConfig.TargetURL,
		d.formatProbeParams(),
		elapsed.Round(time.Second),
		d.probeConfig.Duration,
		summary.Total,
		successRate,
	)

	var inflight int64
	if d.inflight != nil {
		inflight = d.inflight()
	}

	d.metricsPara.Text = fmt.Sprintf(
		"Total Attempts:    %d\nSuccessful:        %d\nFailed:            %d\nRate Limited:      %d\nTick Overruns:     %d\nIn Flight:         %d\nSuccess Rate:      %.1f%%",
		summary.Total,
		summary.Successes,
		summary.Failures,
		summary.RateLimited(),
		summary.Overruns,
		inflight,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		summary.MinLatencyMs,
		summary.MeanLatencyMs,
		summary.P50LatencyMs,
		summary.P90LatencyMs,
		summary.P99LatencyMs,
	)

	d.statusList.Rows = formatStatusRows(summary.StatusCounts)
	d.errorList.Rows = formatErrorRows(summary.ErrorCounts)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatStatusRows(counts map[int]int64) []string {
	rows := metrics.SortedStatusRows(counts)
	if len(rows) == 0 {
		return []string{"[No responses yet](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		color := "green"
		switch {
		case row.Code == 429:
			color = "yellow"
		case row.Code >= 400:
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%d](fg:%s) %d", row.Code, color, row.Count))
	}
	return formatted
}

func formatErrorRows(counts map[metrics.ErrorKind]int64) []string {
	rows := metrics.SortedErrorRows(counts)
	if len(rows) == 0 {
		return []string{"[No errors](fg:green)"}
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", metrics.Label(row.Kind), row.Count))
	}
	return formatted
}

// formatProbeParams formats the probe configuration parameters for display.
func (d *Dashboard) formatProbeParams() string {
	var parts []string

	if d.probeConfig.Method != "" && d.probeConfig.Method != "GET" {
		parts = append(parts, fmt.Sprintf("Method: %s", d.probeConfig.Method))
	}
	parts = append(parts, fmt.Sprintf("Rate: %g/s", d.probeConfig.Rate))
	if d.probeConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.probeConfig.Timeout))
	}
	if d.probeConfig.Ceiling > 0 {
		parts = append(parts, fmt.Sprintf("Ceiling: %d", d.probeConfig.Ceiling))
	}
	if d.probeConfig.PresetFile != "" {
		parts = append(parts, fmt.Sprintf("Preset: %s", d.probeConfig.PresetFile))
	}

	return strings.Join(parts, " | ")
}
