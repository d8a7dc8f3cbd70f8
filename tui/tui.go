// ABOUTME: Terminal kanban board using the bubbletea framework
// ABOUTME: Renders board snapshots and runs board operations as background commands
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pipeboard/board"
	"github.com/rs/zerolog"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewSearch
	ViewConfirmDelete
	ViewEnroll
	ViewCompose
	ViewStats
)

// Deps are the board components the TUI drives.
type Deps struct {
	Store    *board.Store
	Drag     *board.DragController
	Seqs     *board.SequenceCoordinator
	Outreach *board.Outreach
	Log      zerolog.Logger
}

// Model is the main bubbletea model
type Model struct {
	ctx  context.Context
	deps Deps

	updates chan board.Snapshot
	cancel  func()

	snap     board.Snapshot
	viewMode ViewMode

	// Board cursor
	col int
	row int

	// Search state
	search textinput.Model

	// Enrollment state
	prompt    *board.EnrollmentPrompt
	seqCursor int

	// Compose state
	compose    composeKind
	composeFor composeState
	formInputs []textinput.Model
	focusIndex int

	// Stats state
	statsText string

	// Feedback that is not carried by a board notice
	status string

	width  int
	height int
}

var errBadDueDate = errors.New("due date must look like 2025-01-31")

type snapshotMsg board.Snapshot

type opDoneMsg struct {
	op  string
	err error
}

// NewModel subscribes to the store. Call Close when the program exits.
func NewModel(ctx context.Context, deps Deps) Model {
	search := textinput.New()
	search.Placeholder = "title, contact or company"
	search.Prompt = "/ "
	search.CharLimit = 80

	updates := make(chan board.Snapshot, 1)
	cancel := deps.Store.Subscribe(func(s board.Snapshot) { publish(updates, s) })

	return Model{
		ctx:      ctx,
		deps:     deps,
		updates:  updates,
		cancel:   cancel,
		snap:     deps.Store.Snapshot(),
		viewMode: ViewBoard,
		search:   search,
		width:    120,
		height:   30,
	}
}

func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// publish keeps only the newest snapshot in ch.
func publish(ch chan board.Snapshot, s board.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func waitForSnapshot(ch chan board.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

// run executes fn off the UI goroutine. Failures are already reported by
// board notices, so the error is only logged.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.updates),
		m.run("load pipelines", m.deps.Store.LoadPipelines),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		m = m.apply(board.Snapshot(msg))
		return m, waitForSnapshot(m.updates)
	case opDoneMsg:
		if msg.err != nil {
			m.deps.Log.Debug().Err(msg.err).Str("op", msg.op).Msg("board operation failed")
		}
		return m, nil
	case promptMsg:
		return m.handlePrompt(msg)
	case statsMsg:
		m.statsText = string(msg)
		return m, nil
	}
	return m, nil
}

// apply swaps in a newer snapshot and keeps the cursor on the board.
func (m Model) apply(s board.Snapshot) Model {
	if s.Revision < m.snap.Revision {
		return m
	}
	m.snap = s
	m.clampCursor()
	return m
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBoard, ViewSearch:
		return m.renderBoardView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewEnroll:
		return m.renderEnrollView()
	case ViewCompose:
		return m.renderComposeView()
	case ViewStats:
		return m.renderStatsView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewSearch:
		return m.handleSearchKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewEnroll:
		return m.handleEnrollKeys(msg)
	case ViewCompose:
		return m.handleComposeKeys(msg)
	case ViewStats:
		return m.handleStatsKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	noticeOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	noticeErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)
