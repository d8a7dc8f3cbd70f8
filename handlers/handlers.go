// ABOUTME: MCP tool handlers over the board components
// ABOUTME: Shared output shapes and helpers for pipelines, stages and deals
package handlers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/viz"
)

// BoardHandlers exposes board operations as MCP tools. Every call goes
// through the same store the TUI uses, so notices and reconciliation
// behave identically.
type BoardHandlers struct {
	store    *board.Store
	drag     *board.DragController
	seqs     *board.SequenceCoordinator
	outreach *board.Outreach
}

func NewBoardHandlers(store *board.Store, drag *board.DragController, seqs *board.SequenceCoordinator, outreach *board.Outreach) *BoardHandlers {
	return &BoardHandlers{store: store, drag: drag, seqs: seqs, outreach: outreach}
}

type DealOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Value        int64  `json:"value"`
	Display      string `json:"display_value"`
	Currency     string `json:"currency"`
	Priority     string `json:"priority"`
	StageID      string `json:"stage_id"`
	Stage        string `json:"stage,omitempty"`
	ContactID    string `json:"contact_id,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Company      string `json:"company,omitempty"`
}

type StageOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Probability int    `json:"probability"`
}

type NoticeOutput struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func dealToOutput(d models.Deal, stages []models.Stage) DealOutput {
	out := DealOutput{
		ID:       d.ID.String(),
		Title:    d.Title,
		Value:    d.Value,
		Display:  viz.FormatMoney(d.Value, d.Currency),
		Currency: d.Currency,
		Priority: d.Priority.String(),
		StageID:  d.StageID.String(),
	}
	for _, s := range stages {
		if s.ID == d.StageID {
			out.Stage = s.Name
		}
	}
	if d.Contact != nil {
		out.ContactID = d.Contact.ID.String()
		out.ContactName = d.Contact.Name
		out.ContactEmail = d.Contact.Email
		out.Company = d.Contact.Company
	}
	return out
}

func stageToOutput(s models.Stage) StageOutput {
	return StageOutput{ID: s.ID.String(), Name: s.Name, Position: s.Position, Probability: s.Probability}
}

func noticeToOutput(n board.Notice) *NoticeOutput {
	if n.Kind == board.NoticeNone {
		return nil
	}
	return &NoticeOutput{Kind: n.Kind.String(), Message: n.Message}
}

func parseID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}

func parseOptionalID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseID(field, value)
}

func parsePriority(value string) (models.Priority, error) {
	if value == "" {
		return 0, nil
	}
	p, ok := models.ParsePriority(value)
	if !ok {
		return 0, fmt.Errorf("invalid priority: %s (valid: high, medium, low)", value)
	}
	return p, nil
}

// failure prefers the user-facing notice the store published for err.
func (h *BoardHandlers) failure(err error) error {
	if n := h.store.Snapshot().Notice; n.IsError() {
		return fmt.Errorf("%s: %w", n.Message, err)
	}
	return err
}

// resolveStage finds a stage of the active pipeline by id or by name.
func resolveStage(snap board.Snapshot, id, name string) (models.Stage, error) {
	if id == "" && name == "" {
		return models.Stage{}, fmt.Errorf("stage_id or stage is required")
	}
	for _, s := range snap.Stages {
		if s.ID.String() == id || (name != "" && strings.EqualFold(s.Name, name)) {
			return s, nil
		}
	}
	if id != "" {
		return models.Stage{}, fmt.Errorf("stage %s is not part of the active pipeline", id)
	}
	return models.Stage{}, fmt.Errorf("no stage named %q in the active pipeline", name)
}
