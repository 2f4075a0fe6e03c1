// Package tui implements the interactive probe form and live run view.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hermeslabs/hermes/internal/config"
	"github.com/hermeslabs/hermes/internal/metrics"
)

const tickInterval = 200 * time.Millisecond

// ProbeHandle is the slice of a live run the TUI needs. *probe.Run satisfies
// it.
type ProbeHandle interface {
	Snapshot() metrics.Summary
	Inflight() int64
	Cancel()
	Done() <-chan struct{}
	Wait() metrics.Summary
	Err() error
}

// StartFunc launches a probe for the given configuration.
type StartFunc func(cfg config.Config) (ProbeHandle, error)

type phase int

const (
	phaseForm phase = iota
	phaseRunning
	phaseDone
)

type tickMsg time.Time

type runDoneMsg struct{}

// Model is the root bubbletea model for an interactive session.
type Model struct {
	start StartFunc
	cfg   config.Config

	phase    phase
	form     formModel
	formErr  string
	handle   ProbeHandle
	prog     progress.Model
	runStart time.Time

	summary metrics.Summary
	hasRun  bool
	runErr  error

	width    int
	height   int
	quitting bool
}

// New builds the interactive model seeded with cfg's current values.
func New(cfg config.Config, start StartFunc) Model {
	return Model{
		start: start,
		cfg:   cfg,
		form:  newForm(cfg),
		prog:  progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForDone(h ProbeHandle) tea.Cmd {
	return func() tea.Msg {
		<-h.Done()
		return runDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prog.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.handle != nil && m.phase == phaseRunning {
				m.handle.Cancel()
			}
			m.quitting = true
			return m, tea.Quit
		}

		switch m.phase {
		case phaseForm:
			if msg.String() == "ctrl+r" {
				return m.startRun()
			}
		case phaseRunning:
			switch msg.String() {
			case "q", "ctrl+s":
				m.handle.Cancel()
				return m, nil
			}
		case phaseDone:
			switch msg.String() {
			case "r", "enter":
				m.phase = phaseForm
				m.form = newForm(m.cfg)
				m.formErr = ""
				return m, m.form.Init()
			case "q":
				m.quitting = true
				return m, tea.Quit
			}
		}

	case tickMsg:
		if m.phase != phaseRunning {
			return m, nil
		}
		pct := 0.0
		if m.cfg.Duration > 0 {
			pct = float64(time.Since(m.runStart)) / float64(m.cfg.Duration)
		}
		if pct > 1.0 {
			pct = 1.0
		}
		return m, tea.Batch(m.prog.SetPercent(pct), tickCmd())

	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd

	case runDoneMsg:
		m.summary = m.handle.Wait()
		m.runErr = m.handle.Err()
		m.hasRun = true
		m.phase = phaseDone
		return m, nil
	}

	if m.phase == phaseForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if err := m.form.apply(&m.cfg); err != nil {
		m.formErr = err.Error()
		return m, nil
	}

	probeCfg := m.cfg
	probeCfg.Interactive = false
	if err := probeCfg.Validate(); err != nil {
		m.formErr = err.Error()
		return m, nil
	}

	handle, err := m.start(probeCfg)
	if err != nil {
		m.formErr = err.Error()
		return m, nil
	}

	m.handle = handle
	m.formErr = ""
	m.runStart = time.Now()
	m.phase = phaseRunning
	return m, tea.Batch(tickCmd(), waitForDone(handle))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.phase {
	case phaseRunning:
		return m.runningView()
	case phaseDone:
		return m.doneView()
	default:
		view := m.form.View()
		if m.formErr != "" {
			view += "\n" + errStyle.Render(m.formErr)
		}
		return view
	}
}

func (m Model) runningView() string {
	summary := m.handle.Snapshot()

	var s strings.Builder
	s.WriteString(titleStyle.Render("Probing " + m.cfg.TargetURL))
	s.WriteString("\n")
	s.WriteString(subtleStyle.Render(fmt.Sprintf(
		"Rate: %g/s | Duration: %s | Elapsed: %s",
		m.cfg.Rate,
		m.cfg.Duration,
		time.Since(m.runStart).Round(time.Second),
	)))
	s.WriteString("\n\n")

	left := fmt.Sprintf(
		"Attempts:     %d\nSuccesses:    %d\nFailures:     %d\nRate Limited: %s\nIn Flight:    %d\nRPS:          %.1f",
		summary.Total,
		summary.Successes,
		summary.Failures,
		renderRateLimited(summary.RateLimited()),
		m.handle.Inflight(),
		summary.AchievedRPS,
	)
	right := fmt.Sprintf(
		"Latency (ms)\n  P50:  %.1f\n  P90:  %.1f\n  P99:  %.1f\n  Max:  %.1f",
		summary.P50LatencyMs,
		summary.P90LatencyMs,
		summary.P99LatencyMs,
		summary.MaxLatencyMs,
	)
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(32).Render(left),
		lipgloss.NewStyle().Width(24).Render(right),
	))

	s.WriteString("\n\n")
	s.WriteString(m.prog.View())
	s.WriteString("\n")
	s.WriteString(subtleStyle.Render("Press q to stop early"))
	return boxStyle.Render(s.String())
}

func (m Model) doneView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Probe Complete"))
	s.WriteString("\n")
	if m.runErr != nil {
		s.WriteString(errStyle.Render("Error: " + m.runErr.Error()))
		s.WriteString("\n")
	}
	s.WriteString(fmt.Sprintf(
		"State: %s\nAttempts: %s | Successes: %s | Failures: %s\nRate Limited (429): %s\nP99 Latency: %.1fms | Achieved RPS: %.1f",
		m.summary.State,
		valueStyle.Render(fmt.Sprint(m.summary.Total)),
		valueStyle.Render(fmt.Sprint(m.summary.Successes)),
		errStyle.Render(fmt.Sprint(m.summary.Failures)),
		renderRateLimited(m.summary.RateLimited()),
		m.summary.P99LatencyMs,
		m.summary.AchievedRPS,
	))
	s.WriteString("\n\n")
	s.WriteString(activeStyle.Render("[r] Run Again"))
	s.WriteString("  ")
	s.WriteString(subtleStyle.Render("[q] Quit"))
	return boxStyle.Render(s.String())
}

func renderRateLimited(n int64) string {
	text := fmt.Sprint(n)
	if n > 0 {
		return warnStyle.Render(text)
	}
	return text
}

// Run drives the interactive session until the operator quits. It returns the
// summary of the last completed probe, if any.
func Run(cfg config.Config, start StartFunc) (metrics.Summary, bool, error) {
	final, err := tea.NewProgram(New(cfg, start), tea.WithAltScreen()).Run()
	if err != nil {
		return metrics.Summary{}, false, err
	}
	m, ok := final.(Model)
	if !ok {
		return metrics.Summary{}, false, nil
	}
	return m.summary, m.hasRun, nil
}
