package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipeboard/viz"
)

type statsMsg string

// loadStats renders from the current snapshot, so filters apply.
func (m Model) loadStats() tea.Cmd {
	snap := m.snap
	return func() tea.Msg {
		if snap.Pipeline == nil {
			return statsMsg("No pipeline selected")
		}
		return statsMsg(viz.RenderStats(viz.ComputeStats(*snap.Pipeline, snap.Deals)))
	}
}

func (m Model) renderStatsView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE STATS"))
	s.WriteString("\n\n")

	if m.statsText == "" {
		s.WriteString("Crunching numbers...\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.statsText))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join([]string{"g: Graphviz source", "Esc: Back"}, " • ")))
	return s.String()
}

func (m Model) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.viewMode = ViewBoard
		m.statsText = ""
	case "g":
		snap := m.snap
		if snap.Pipeline == nil {
			return m, nil
		}
		ctx := m.ctx
		return m, func() tea.Msg {
			dot, err := viz.PipelineGraph(ctx, *snap.Pipeline, snap.Deals)
			if err != nil {
				return statsMsg("Error: " + err.Error())
			}
			return statsMsg(dot)
		}
	}
	return m, nil
}
