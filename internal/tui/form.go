package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hermeslabs/hermes/internal/config"
)

type formField struct {
	label string
	input textinput.Model
}

// formModel is the probe configuration form. Field order matches the prompts
// of a manual run: target first, then shape, then payload.
type formModel struct {
	fields []formField
	focus  int
}

const (
	fieldURL = iota
	fieldMethod
	fieldRate
	fieldDuration
	fieldTimeout
	fieldHeaders
	fieldBody
	fieldCount
)

func newForm(cfg config.Config) formModel {
	m := formModel{fields: make([]formField, fieldCount)}

	url := textinput.New()
	url.Placeholder = "http://localhost:8080"
	url.SetValue(cfg.TargetURL)
	url.Width = 50
	url.Focus()
	m.fields[fieldURL] = formField{label: "Target URL", input: url}

	method := textinput.New()
	method.Placeholder = "GET"
	method.SetValue(cfg.Method)
	method.Width = 10
	m.fields[fieldMethod] = formField{label: "Method", input: method}

	rate := textinput.New()
	rate.Placeholder = "1"
	if cfg.Rate > 0 {
		rate.SetValue(strconv.FormatFloat(cfg.Rate, 'g', -1, 64))
	}
	rate.Width = 10
	m.fields[fieldRate] = formField{label: "Rate (req/s)", input: rate}

	duration := textinput.New()
	duration.Placeholder = "10"
	if cfg.Duration > 0 {
		duration.SetValue(formatSeconds(cfg.Duration))
	}
	duration.Width = 10
	m.fields[fieldDuration] = formField{label: "Duration (s)", input: duration}

	timeout := textinput.New()
	timeout.Placeholder = "10"
	if cfg.Timeout > 0 {
		timeout.SetValue(formatSeconds(cfg.Timeout))
	}
	timeout.Width = 10
	m.fields[fieldTimeout] = formField{label: "Timeout (s)", input: timeout}

	headers := textinput.New()
	headers.Placeholder = "Authorization: Bearer tok; Accept: application/json"
	headers.SetValue(formatHeaders(cfg.Headers))
	headers.Width = 60
	m.fields[fieldHeaders] = formField{label: "Headers (Name: Value; ...)", input: headers}

	body := textinput.New()
	body.Placeholder = `{"probe": true}`
	body.SetValue(cfg.Body)
	body.Width = 60
	m.fields[fieldBody] = formField{label: "Body", input: body}

	return m
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
}

func formatHeaders(headers []config.Header) string {
	if len(headers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(headers))
	for _, h := range headers {
		parts = append(parts, h.Name+": "+h.Value)
	}
	return strings.Join(parts, "; ")
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down", "enter":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		}
	}

	var cmds []tea.Cmd
	for i := range m.fields {
		var cmd tea.Cmd
		m.fields[i].input, cmd = m.fields[i].input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m formModel) moveFocus(delta int) formModel {
	m.focus += delta
	if m.focus >= len(m.fields) {
		m.focus = 0
	} else if m.focus < 0 {
		m.focus = len(m.fields) - 1
	}
	for i := range m.fields {
		if i == m.focus {
			m.fields[i].input.Focus()
			m.fields[i].input.PromptStyle = activeStyle
			m.fields[i].input.TextStyle = activeStyle
		} else {
			m.fields[i].input.Blur()
			m.fields[i].input.PromptStyle = lipgloss.NewStyle()
			m.fields[i].input.TextStyle = lipgloss.NewStyle()
		}
	}
	return m
}

// apply copies the form values onto cfg. Blank fields keep cfg's value so a
// rerun only needs the fields the operator wants to change.
func (m formModel) apply(cfg *config.Config) error {
	cfg.TargetURL = strings.TrimSpace(m.fields[fieldURL].input.Value())

	if method := strings.TrimSpace(m.fields[fieldMethod].input.Value()); method != "" {
		cfg.Method = strings.ToUpper(method)
	} else {
		cfg.Method = "GET"
	}

	if raw := strings.TrimSpace(m.fields[fieldRate].input.Value()); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = rate
	}

	if raw := strings.TrimSpace(m.fields[fieldDuration].input.Value()); raw != "" {
		d, err := config.ParseDurationSeconds(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = d
	}

	if raw := strings.TrimSpace(m.fields[fieldTimeout].input.Value()); raw != "" {
		d, err := config.ParseDurationSeconds(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if raw := strings.TrimSpace(m.fields[fieldHeaders].input.Value()); raw != "" {
		headers, err := config.ParseHeaderLines(strings.Split(raw, ";"))
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		cfg.Headers = headers
	} else {
		cfg.Headers = nil
	}

	cfg.Body = m.fields[fieldBody].input.Value()
	return nil
}

func (m formModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Hermes Probe Configuration"))
	s.WriteString("\n\n")
	for i := range m.fields {
		s.WriteString(subtleStyle.Render(m.fields[i].label))
		s.WriteString("\n")
		s.WriteString(m.fields[i].input.View())
		s.WriteString("\n\n")
	}
	s.WriteString(activeStyle.Render("[Ctrl+R] Start Probe"))
	s.WriteString("  ")
	s.WriteString(subtleStyle.Render("[Ctrl+C] Quit"))
	return boxStyle.Render(s.String())
}
