// ABOUTME: Delete confirmation dialog for the selected deal
// ABOUTME: The deal is removed only after an explicit yes
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/viz"
)

var (
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 3).
			Width(56)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dialogLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(9)

	yesKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("196")).
			Padding(0, 1)

	noKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m Model) renderConfirmDeleteView() string {
	deal, ok := m.selectedDeal()
	if !ok {
		return "Nothing selected"
	}

	stage := "-"
	for _, s := range m.snap.Stages {
		if s.ID == deal.StageID {
			stage = s.Name
		}
	}
	contact := "-"
	if deal.Contact != nil {
		contact = deal.Contact.Name
	}

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, dialogLabelStyle.Render(label), value)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		dangerStyle.Render(fmt.Sprintf("Delete %q?", deal.Title)),
		"",
		row("Stage", stage),
		row("Value", viz.FormatMoney(deal.Value, deal.Currency)),
		row("Contact", contact),
		"",
		"The deal and its timeline are removed for everyone.",
		"",
		yesKeyStyle.Render("y")+" delete   "+noKeyStyle.Render("n")+" keep",
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialogStyle.Render(content))
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		deal, ok := m.selectedDeal()
		m.viewMode = ViewBoard
		if !ok {
			return m, nil
		}
		store := m.deps.Store
		return m, m.run("delete deal", func(ctx context.Context) error {
			return store.DeleteDeal(ctx, deal.ID, board.Confirmed)
		})
	case "n", "N", "esc":
		m.viewMode = ViewBoard
	}

	return m, nil
}
