package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/viz"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true)

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

const minColumnWidth = 22

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPEBOARD"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.snap.Pipeline == nil {
		s.WriteString(dimStyle.Render("No pipeline yet. Create one with `pipeboard pipelines add`."))
		s.WriteString("\n")
	} else {
		s.WriteString(m.renderColumns())
		s.WriteString("\n")
		if len(m.snap.Unplaced) > 0 {
			s.WriteString(noticeErrStyle.Render(fmt.Sprintf("%d deals are in stages this board does not know about", len(m.snap.Unplaced))))
			s.WriteString("\n")
		}
	}

	if m.viewMode == ViewSearch || m.snap.HasFilters {
		s.WriteString(m.search.View())
		s.WriteString("\n")
	}
	s.WriteString(m.renderNotice())
	s.WriteString(m.renderBoardHelp())
	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for _, p := range m.snap.Pipelines {
		if m.snap.Pipeline != nil && p.ID == m.snap.Pipeline.ID {
			rendered = append(rendered, tabActiveStyle.Render(p.Name))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(p.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) columnWidth() int {
	n := len(m.snap.Stages)
	if n == 0 {
		return minColumnWidth
	}
	w := m.width/n - 4
	if w < minColumnWidth {
		w = minColumnWidth
	}
	return w
}

func (m Model) renderColumns() string {
	width := m.columnWidth()
	currency := ""
	if len(m.snap.Deals) > 0 {
		currency = m.snap.Deals[0].Currency
	}

	columns := make([]string, 0, len(m.snap.Stages))
	for i, stage := range m.snap.Stages {
		deals := m.snap.Column(stage.ID)
		var total int64
		for _, d := range deals {
			total += d.Value
		}

		var body strings.Builder
		body.WriteString(columnTitleStyle.Render(truncate(stage.Name, width)))
		body.WriteString("\n")
		body.WriteString(dimStyle.Render(fmt.Sprintf("%d · %s · %d%%", len(deals), viz.FormatMoney(total, currency), stage.Probability)))
		body.WriteString("\n\n")
		for j, d := range deals {
			body.WriteString(m.renderCard(d, i == m.col && j == m.row, width))
			body.WriteString("\n")
		}
		if len(deals) == 0 {
			body.WriteString(dimStyle.Render("empty"))
		}

		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		columns = append(columns, style.Width(width).Render(body.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m Model) renderCard(d models.Deal, selected bool, width int) string {
	line := d.Title
	if d.Priority == models.PriorityHigh {
		line = "! " + line
	}
	line = truncate(line, width)
	sub := viz.FormatMoney(d.Value, d.Currency)
	if d.Contact != nil {
		sub += " · " + d.Contact.Name
	}
	if m.deps.Drag != nil {
		if phase := m.deps.Drag.Phase(d.ID); phase == board.PhaseReconciling {
			sub += " …"
		}
	}
	sub = truncate(sub, width)

	if selected {
		return selectedCardStyle.Render(line) + "\n" + selectedCardStyle.Render(sub)
	}
	return cardStyle.Render(line) + "\n" + dimStyle.Render(sub)
}

func (m Model) renderNotice() string {
	if m.status != "" {
		return noticeErrStyle.Render(m.status) + "\n"
	}
	n := m.snap.Notice
	stale := ""
	if m.snap.Stale {
		stale = noticeErrStyle.Render("Board may be out of date; press r to refresh") + "\n"
	}
	if n.Kind == board.NoticeNone {
		return stale
	}
	if n.IsError() {
		return noticeErrStyle.Render(n.Message) + "\n" + stale
	}
	return noticeOKStyle.Render(n.Message) + "\n" + stale
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"←/→ ↑/↓: Navigate",
		"</>: Move deal",
		"[/]: Pipeline",
		"/: Search",
		"c: Clear filters",
		"e: Enroll",
		"m: Email",
		"t: Task",
		"d: Delete",
		"s: Stats",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func (m *Model) clampCursor() {
	if n := len(m.snap.Stages); m.col >= n {
		m.col = n - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	rows := 0
	if m.col < len(m.snap.Stages) {
		rows = len(m.snap.Column(m.snap.Stages[m.col].ID))
	}
	if m.row >= rows {
		m.row = rows - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m Model) selectedDeal() (models.Deal, bool) {
	if m.col >= len(m.snap.Stages) {
		return models.Deal{}, false
	}
	deals := m.snap.Column(m.snap.Stages[m.col].ID)
	if m.row >= len(deals) {
		return models.Deal{}, false
	}
	return deals[m.row], true
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.col--
		m.clampCursor()
	case "right", "l":
		m.col++
		m.clampCursor()
	case "up", "k":
		m.row--
		m.clampCursor()
	case "down", "j":
		m.row++
		m.clampCursor()
	case "<", "shift+left", "H":
		cmd := m.moveSelected(-1)
		return m, cmd
	case ">", "shift+right", "L":
		cmd := m.moveSelected(1)
		return m, cmd
	case "[":
		cmd := m.switchPipeline(-1)
		return m, cmd
	case "]":
		cmd := m.switchPipeline(1)
		return m, cmd
	case "/":
		m.viewMode = ViewSearch
		m.search.Focus()
		return m, nil
	case "c":
		m.search.SetValue("")
		m.deps.Store.SetCriteria(models.FilterCriteria{})
	case "r":
		return m, m.run("refresh", m.deps.Store.LoadPipelines)
	case "d":
		if _, ok := m.selectedDeal(); ok {
			m.viewMode = ViewConfirmDelete
		}
	case "e":
		if deal, ok := m.selectedDeal(); ok {
			return m, m.prepareEnrollment(deal)
		}
	case "m":
		if deal, ok := m.selectedDeal(); ok {
			m.openCompose(composeEmail, deal)
		}
	case "t":
		if deal, ok := m.selectedDeal(); ok {
			m.openCompose(composeTask, deal)
		}
	case "s":
		m.viewMode = ViewStats
		return m, m.loadStats()
	}
	return m, nil
}

// moveSelected drops the selected card at the end of the neighbouring column.
func (m *Model) moveSelected(delta int) tea.Cmd {
	deal, ok := m.selectedDeal()
	if !ok {
		return nil
	}
	target := m.col + delta
	if target < 0 || target >= len(m.snap.Stages) {
		return nil
	}
	dest := m.snap.Stages[target]
	ev := board.DropEvent{
		DealID: deal.ID,
		Source: board.Location{StageID: deal.StageID, Index: m.row},
		Dest:   &board.Location{StageID: dest.ID, Index: len(m.snap.Column(dest.ID))},
	}

	// Follow the card.
	m.col = target
	m.row = len(m.snap.Column(dest.ID))

	drag := m.deps.Drag
	return m.run("move deal", func(ctx context.Context) error {
		_, err := drag.OnDrop(ctx, ev)
		return err
	})
}

func (m *Model) switchPipeline(delta int) tea.Cmd {
	n := len(m.snap.Pipelines)
	if n < 2 || m.snap.Pipeline == nil {
		return nil
	}
	current := 0
	for i, p := range m.snap.Pipelines {
		if p.ID == m.snap.Pipeline.ID {
			current = i
		}
	}
	next := m.snap.Pipelines[(current+delta+n)%n]
	m.col, m.row = 0, 0
	store := m.deps.Store
	return m.run("select pipeline", func(ctx context.Context) error {
		return store.SelectPipeline(ctx, next.ID)
	})
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.deps.Store.FlushSearch()
		m.search.Blur()
		m.viewMode = ViewBoard
		return m, nil
	case "esc":
		m.search.SetValue("")
		m.deps.Store.SetSearch("")
		m.deps.Store.FlushSearch()
		m.search.Blur()
		m.viewMode = ViewBoard
		return m, nil
	}

	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.deps.Store.SetSearch(m.search.Value())
	}
	return m, cmd
}
