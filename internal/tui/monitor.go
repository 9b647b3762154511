// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"denoise/internal/fault"
	"denoise/internal/spectral"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Source is the engine surface the monitor reads. *engine.Engine
// satisfies it.
type Source interface {
	SnapshotInto(dst *spectral.Snapshot) bool
	Statistics() fault.Statistics
	BandFrequencies() []float64
	Reset() error
	ResetStatistics()
}

// DefaultRefresh is the monitor redraw interval.
const DefaultRefresh = 100 * time.Millisecond

const barWidth = 32

type tickMsg time.Time

type monitorKeys struct {
	Reset      key.Binding
	ClearStats key.Binding
	Quit       key.Binding
}

func (k monitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Reset, k.ClearStats, k.Quit}
}

func (k monitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultMonitorKeys = monitorKeys{
	Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset engine")),
	ClearStats: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear stats")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// MonitorModel shows live engine state, fault counters and band levels.
type MonitorModel struct {
	src      Source
	refresh  time.Duration
	keys     monitorKeys
	help     help.Model
	gain     progress.Model
	snap     spectral.Snapshot
	stats    fault.Statistics
	freqs    []float64
	active   bool
	err      error
	quitting bool
}

// NewMonitorModel returns a monitor polling src every refresh.
func NewMonitorModel(src Source, refresh time.Duration) MonitorModel {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	gain := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	gain.Width = barWidth
	m := MonitorModel{
		src:     src,
		refresh: refresh,
		keys:    defaultMonitorKeys,
		help:    help.New(),
		gain:    gain,
	}
	m.poll()
	return m
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *MonitorModel) poll() {
	m.active = m.src.SnapshotInto(&m.snap)
	m.stats = m.src.Statistics()
	if len(m.freqs) != len(m.snap.Bands) {
		m.freqs = m.src.BandFrequencies()
	}
}

// Init starts the refresh ticker.
func (m MonitorModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks and key presses.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.poll()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reset):
			m.err = m.src.Reset()
			m.poll()
		case key.Matches(msg, m.keys.ClearStats):
			m.src.ResetStatistics()
			m.poll()
		}
	}
	return m, nil
}

// View renders the monitor.
func (m MonitorModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Noise Reduction Monitor"))
	sb.WriteString("\n\n")

	if !m.active {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Engine %s: not configured, audio passes through.", m.snap.State)))
		sb.WriteString("\n\n")
		sb.WriteString(m.help.View(m.keys))
		return sb.String()
	}

	status := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.renderEngine()),
		" ",
		panelStyle.Render(m.renderFaults()),
	)
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(panelStyle.Render(m.renderBands()))
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(faultStyle.Render("Reset failed: " + m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func (m MonitorModel) renderEngine() string {
	var sb strings.Builder
	state := m.snap.State.String()
	if m.snap.State == spectral.Faulted {
		state = faultStyle.Render(state + " (bypassing)")
	} else {
		state = highlightStyle.Render(state)
	}
	sb.WriteString(row("State", state))
	sb.WriteString(row("Backend", m.snap.Backend))
	sb.WriteString(row("Frames", fmt.Sprintf("%d", m.snap.Frames)))
	noise := 0.0
	if m.snap.Hops > 0 {
		noise = 100 * float64(m.snap.NoiseHops) / float64(m.snap.Hops)
	}
	sb.WriteString(row("Hops", fmt.Sprintf("%d (%.1f%% noise)", m.snap.Hops, noise)))
	phase := "tracking"
	if m.snap.Calibrating {
		phase = "calibrating"
	}
	sb.WriteString(row("Profile", phase))
	sb.WriteString(row("Threshold", fmt.Sprintf("%.3g", m.snap.Threshold)))
	sb.WriteString(row("Mean gain", m.gain.ViewAs(clamp01(m.snap.MeanGain))+fmt.Sprintf(" %.2f", m.snap.MeanGain)))
	f := m.snap.Features
	sb.WriteString(row("Centroid", formatHz(f.Centroid)+" ± "+formatHz(f.Spread)))
	sb.WriteString(row("Rolloff", formatHz(f.Rolloff)))
	sb.WriteString(row("Flatness", fmt.Sprintf("%.2f", f.Flatness)))
	return strings.TrimSuffix(sb.String(), "\n")
}

func (m MonitorModel) renderFaults() string {
	var sb strings.Builder
	sb.WriteString(row("Errors", fmt.Sprintf("%d", m.stats.TotalErrors)))
	sb.WriteString(row("Recovered", fmt.Sprintf("%d", m.stats.RecoveredErrors)))
	unrecoverable := fmt.Sprintf("%d", m.stats.UnrecoverableErrors)
	if m.stats.UnrecoverableErrors > 0 {
		unrecoverable = faultStyle.Render(unrecoverable)
	}
	sb.WriteString(row("Unrecoverable", unrecoverable))
	sb.WriteString(row("Warnings", fmt.Sprintf("%d", m.stats.TotalWarnings)))
	sb.WriteString(row("Bypassed", fmt.Sprintf("%d", m.snap.Bypassed)))
	sb.WriteString(row("Substituted", fmt.Sprintf("%d", m.snap.Substituted)))
	last := "-"
	if !m.stats.LastErrorTime.IsZero() {
		last = fmt.Sprintf("%s @ %s", m.stats.LastErrorComponent, m.stats.LastErrorTime.Format(time.TimeOnly))
	}
	sb.WriteString(row("Last error", last))
	return strings.TrimSuffix(sb.String(), "\n")
}

// renderBands draws one bar per band, scaled to the loudest band.
func (m MonitorModel) renderBands() string {
	if len(m.snap.Bands) == 0 {
		return "No band data."
	}
	peak := 0.0
	for _, v := range m.snap.Bands {
		peak = max(peak, v)
	}

	var sb strings.Builder
	for i, v := range m.snap.Bands {
		n := 0
		if peak > 0 {
			n = int(v / peak * barWidth)
		}
		label := fmt.Sprintf("band %d", i)
		if i < len(m.freqs) {
			label = formatHz(m.freqs[i])
		}
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(highlightStyle.Render(strings.Repeat("█", n)))
		sb.WriteString(strings.Repeat(" ", barWidth-n))
		sb.WriteString(fmt.Sprintf(" %.3g\n", v))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatHz(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.1f kHz", hz/1000)
	}
	return fmt.Sprintf("%.0f Hz", hz)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// StartMonitor runs the monitor until the user quits or ctx is done.
func StartMonitor(ctx context.Context, src Source, refresh time.Duration) error {
	p := tea.NewProgram(NewMonitorModel(src, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
