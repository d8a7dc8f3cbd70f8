// ABOUTME: Tests for the kanban TUI driven against an in-memory reference server
// ABOUTME: Verifies navigation, moves, deletion, search, enrollment and forms
package tui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/gateway"
	"github.com/harperreed/pipeboard/mailer"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	m         Model
	store     *board.Store
	seqs      *board.SequenceCoordinator
	client    *gateway.Client
	lead      models.Stage
	qualified models.Stage
	deal      models.Deal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	secret := []byte("tui-test-secret")
	server, err := web.NewServer(database, mailer.NewLogMailer(zerolog.Nop()), secret, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	token, err := web.IssueToken(secret, "tui-test", time.Hour)
	require.NoError(t, err)
	client := gateway.New(srv.URL, token, 5*time.Second)

	p, err := client.CreatePipeline(ctx, models.PipelineForm{Name: "Sales", Active: true, IsDefault: true})
	require.NoError(t, err)
	var stages []models.Stage
	for i, name := range []string{"Lead", "Qualified", "Won"} {
		st, err := client.CreateStage(ctx, p.ID, models.StageForm{Name: name, Position: i, Probability: i * 50})
		require.NoError(t, err)
		stages = append(stages, *st)
	}
	contact, err := client.CreateContact(ctx, models.Contact{Name: "Ada Lovelace", Email: "ada@acme.test", Company: "Acme"})
	require.NoError(t, err)
	deal, err := client.CreateDeal(ctx, models.DealInput{Title: "Acme rollout", Value: 100000, ContactID: contact.ID, PipelineID: p.ID})
	require.NoError(t, err)

	store := board.NewStore(client, board.WithSearchDebounce(0))
	require.NoError(t, store.LoadPipelines(ctx))
	seqs := board.NewSequenceCoordinator(store, client)

	m := NewModel(ctx, Deps{
		Store:    store,
		Drag:     board.NewDragController(store),
		Seqs:     seqs,
		Outreach: board.NewOutreach(store, client, nil),
		Log:      zerolog.Nop(),
	})
	t.Cleanup(m.Close)

	return &harness{m: m, store: store, seqs: seqs, client: client, lead: stages[0], qualified: stages[1], deal: *deal}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (h *harness) press(t *testing.T, k string) tea.Cmd {
	t.Helper()
	next, cmd := h.m.Update(key(k))
	h.m = next.(Model)
	return cmd
}

// exec runs an operation command to completion and syncs the model.
func (h *harness) exec(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	next, _ := h.m.Update(msg)
	h.m = next.(Model).apply(h.store.Snapshot())
	return msg
}

func TestBoardRendersColumns(t *testing.T) {
	h := newHarness(t)
	out := h.m.View()

	assert.Contains(t, out, "PIPEBOARD")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "Lead")
	assert.Contains(t, out, "Qualified")
	assert.Contains(t, out, "Acme rollout")
	assert.Contains(t, out, "Ada Lovelace")
}

func TestCursorStaysOnBoard(t *testing.T) {
	h := newHarness(t)

	h.press(t, "h")
	assert.Equal(t, 0, h.m.col)
	h.press(t, "l")
	h.press(t, "l")
	h.press(t, "l")
	assert.Equal(t, 2, h.m.col)
	h.press(t, "j")
	assert.Equal(t, 0, h.m.row, "empty column")

	h.press(t, "h")
	h.press(t, "h")
	deal, ok := h.m.selectedDeal()
	require.True(t, ok)
	assert.Equal(t, h.deal.ID, deal.ID)
}

func TestMoveSelectedDeal(t *testing.T) {
	h := newHarness(t)

	assert.Nil(t, h.press(t, "<"), "no column to the left")

	msg := h.exec(t, h.press(t, ">"))
	done, ok := msg.(opDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	got, ok := h.store.Snapshot().Deal(h.deal.ID)
	require.True(t, ok)
	assert.Equal(t, h.qualified.ID, got.StageID)
	assert.Equal(t, 1, h.m.col, "cursor follows the card")

	selected, ok := h.m.selectedDeal()
	require.True(t, ok)
	assert.Equal(t, h.deal.ID, selected.ID)
	assert.Contains(t, h.m.View(), "Moved")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)

	h.press(t, "d")
	require.Equal(t, ViewConfirmDelete, h.m.viewMode)
	assert.Contains(t, h.m.View(), "Acme rollout")

	assert.Nil(t, h.press(t, "n"))
	assert.Equal(t, ViewBoard, h.m.viewMode)
	_, ok := h.store.Snapshot().Deal(h.deal.ID)
	assert.True(t, ok)

	h.press(t, "d")
	h.exec(t, h.press(t, "y"))
	assert.Equal(t, ViewBoard, h.m.viewMode)
	_, ok = h.store.Snapshot().Deal(h.deal.ID)
	assert.False(t, ok)
}

func TestSearchFiltersBoard(t *testing.T) {
	h := newHarness(t)

	h.press(t, "/")
	require.Equal(t, ViewSearch, h.m.viewMode)
	h.press(t, "zzz")
	h.press(t, "enter")
	assert.Equal(t, ViewBoard, h.m.viewMode)
	assert.Equal(t, "zzz", h.store.Criteria().Search)
	assert.Empty(t, h.store.Snapshot().Deals)

	h.press(t, "c")
	assert.Empty(t, h.store.Criteria().Search)
	assert.Len(t, h.store.Snapshot().Deals, 1)

	h.press(t, "/")
	h.press(t, "acme")
	h.press(t, "esc")
	assert.Empty(t, h.store.Criteria().Search)
}

func TestEnrollFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.exec(t, h.press(t, "e"))
	require.Equal(t, ViewEnroll, h.m.viewMode)
	require.NotNil(t, h.m.prompt)
	assert.Equal(t, board.PromptRedirect, h.m.prompt.Kind)
	assert.Contains(t, h.m.View(), "no active sequences")
	h.press(t, "esc")

	_, err := h.client.CreateSequence(ctx, models.Sequence{Name: "Onboarding", Status: models.SequenceStatusActive, StepCount: 3})
	require.NoError(t, err)
	h.seqs.Invalidate()

	h.exec(t, h.press(t, "e"))
	require.Equal(t, board.PromptSelect, h.m.prompt.Kind)
	out := h.m.View()
	assert.Contains(t, out, "Onboarding")
	assert.Contains(t, out, "will move to Qualified")

	msg := h.exec(t, h.press(t, "enter"))
	require.NoError(t, msg.(opDoneMsg).err)
	assert.Equal(t, ViewBoard, h.m.viewMode)

	got, ok := h.store.Snapshot().Deal(h.deal.ID)
	require.True(t, ok)
	assert.Equal(t, h.qualified.ID, got.StageID)
}

func TestComposeTask(t *testing.T) {
	h := newHarness(t)

	h.press(t, "t")
	require.Equal(t, ViewCompose, h.m.viewMode)
	h.press(t, "Call Ada")
	h.press(t, "tab")
	h.press(t, "tomorrow")

	assert.Nil(t, h.press(t, "enter"))
	assert.Equal(t, ViewCompose, h.m.viewMode)
	assert.Equal(t, errBadDueDate.Error(), h.m.status)

	h.m.formInputs[1].SetValue("2030-01-02")
	msg := h.exec(t, h.press(t, "enter"))
	require.NoError(t, msg.(opDoneMsg).err)
	assert.Equal(t, ViewBoard, h.m.viewMode)
	assert.Empty(t, h.m.status)
}

func TestComposeEmailWithoutAccount(t *testing.T) {
	h := newHarness(t)

	h.press(t, "m")
	h.press(t, "Kickoff")
	msg := h.exec(t, h.press(t, "enter"))
	assert.ErrorIs(t, msg.(opDoneMsg).err, board.ErrNoEmailAccount)
	assert.Contains(t, h.m.View(), "Connect an email account first")
}

func TestStaleSnapshotIsIgnored(t *testing.T) {
	h := newHarness(t)
	current := h.m.snap.Revision

	stale := h.store.Snapshot()
	stale.Revision = current - 1
	stale.Deals = nil
	next, cmd := h.m.Update(snapshotMsg(stale))
	h.m = next.(Model)

	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, current, h.m.snap.Revision)
	assert.Len(t, h.m.snap.Deals, 1)
}

func TestStatsView(t *testing.T) {
	h := newHarness(t)

	h.exec(t, h.press(t, "s"))
	assert.Equal(t, ViewStats, h.m.viewMode)
	out := h.m.View()
	assert.Contains(t, out, "SALES")
	assert.Contains(t, out, "1 deals")

	h.press(t, "esc")
	assert.Equal(t, ViewBoard, h.m.viewMode)
}

func TestStaleBoardIsFlagged(t *testing.T) {
	h := newHarness(t)
	assert.NotContains(t, h.m.View(), "Board may be out of date")

	snap := h.store.Snapshot()
	snap.Revision = h.m.snap.Revision + 1
	snap.Stale = true
	next, _ := h.m.Update(snapshotMsg(snap))
	h.m = next.(Model)

	assert.Contains(t, h.m.View(), "Board may be out of date")
}
