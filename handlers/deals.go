// ABOUTME: Deal MCP tools
// ABOUTME: Implements create_deal, update_deal, move_deal and delete_deal
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CreateDealInput struct {
	Title      string `json:"title" jsonschema:"Deal title (required)"`
	Value      int64  `json:"value,omitempty" jsonschema:"Deal value in cents"`
	Currency   string `json:"currency,omitempty" jsonschema:"Currency code (default USD)"`
	ContactID  string `json:"contact_id" jsonschema:"UUID of the deal's contact (required)"`
	PipelineID string `json:"pipeline_id,omitempty" jsonschema:"UUID of the pipeline (default: the selected one)"`
	Priority   string `json:"priority,omitempty" jsonschema:"high, medium or low (default medium)"`
}

type DealResult struct {
	Deal   DealOutput    `json:"deal"`
	Notice *NoticeOutput `json:"notice,omitempty"`
}

func (h *BoardHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealResult, error) {
	if input.Title == "" {
		return nil, DealResult{}, fmt.Errorf("title is required")
	}
	contactID, err := parseID("contact_id", input.ContactID)
	if err != nil {
		return nil, DealResult{}, err
	}
	pipelineID, err := parseOptionalID("pipeline_id", input.PipelineID)
	if err != nil {
		return nil, DealResult{}, err
	}
	priority, err := parsePriority(input.Priority)
	if err != nil {
		return nil, DealResult{}, err
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	deal, err := h.store.CreateDeal(ctx, models.DealInput{
		Title:      input.Title,
		Value:      input.Value,
		Currency:   currency,
		ContactID:  contactID,
		PipelineID: pipelineID,
		Priority:   priority,
	})
	if err != nil {
		return nil, DealResult{}, h.failure(err)
	}
	snap := h.store.Snapshot()
	return nil, DealResult{Deal: dealToOutput(*deal, snap.Stages), Notice: noticeToOutput(snap.Notice)}, nil
}

type UpdateDealInput struct {
	DealID   string `json:"deal_id" jsonschema:"UUID of the deal (required)"`
	Title    string `json:"title,omitempty" jsonschema:"New title"`
	Value    *int64 `json:"value,omitempty" jsonschema:"New value in cents"`
	Currency string `json:"currency,omitempty" jsonschema:"New currency code"`
	Priority string `json:"priority,omitempty" jsonschema:"high, medium or low"`
	StageID  string `json:"stage_id,omitempty" jsonschema:"UUID of a stage in the selected pipeline"`
	Stage    string `json:"stage,omitempty" jsonschema:"Stage name, used when stage_id is empty"`
}

// UpdateDeal saves fields, then the stage. A failed stage change after saved
// fields is reported as an error that says what was kept.
func (h *BoardHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealResult, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealResult{}, err
	}
	current, ok := h.store.Deal(id)
	if !ok {
		return nil, DealResult{}, fmt.Errorf("deal %s is not on the selected board", id)
	}
	priority, err := parsePriority(input.Priority)
	if err != nil {
		return nil, DealResult{}, err
	}

	patch := models.DealPatch{DealFields: models.DealFields{
		Title:    current.Title,
		Value:    current.Value,
		Currency: input.Currency,
		Priority: priority,
	}}
	if input.Title != "" {
		patch.Title = input.Title
	}
	if input.Value != nil {
		patch.Value = *input.Value
	}
	if input.StageID != "" || input.Stage != "" {
		stage, err := resolveStage(h.store.Snapshot(), input.StageID, input.Stage)
		if err != nil {
			return nil, DealResult{}, err
		}
		patch.StageID = stage.ID
	}

	if err := h.store.EditDeal(ctx, id, patch); err != nil {
		return nil, DealResult{}, h.failure(err)
	}
	return nil, h.dealResult(id), nil
}

type MoveDealInput struct {
	DealID  string `json:"deal_id" jsonschema:"UUID of the deal (required)"`
	StageID string `json:"stage_id,omitempty" jsonschema:"UUID of the destination stage"`
	Stage   string `json:"stage,omitempty" jsonschema:"Destination stage name, used when stage_id is empty"`
}

type MoveDealOutput struct {
	Phase  string        `json:"phase"`
	Deal   DealOutput    `json:"deal"`
	Notice *NoticeOutput `json:"notice,omitempty"`
}

// MoveDeal drops the deal on another column, exactly like dragging a card.
func (h *BoardHandlers) MoveDeal(ctx context.Context, request *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, MoveDealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, MoveDealOutput{}, err
	}
	deal, ok := h.store.Deal(id)
	if !ok {
		return nil, MoveDealOutput{}, fmt.Errorf("deal %s is not on the selected board", id)
	}
	stage, err := resolveStage(h.store.Snapshot(), input.StageID, input.Stage)
	if err != nil {
		return nil, MoveDealOutput{}, err
	}

	res, err := h.drag.OnDrop(ctx, board.DropEvent{
		DealID: id,
		Source: board.Location{StageID: deal.StageID},
		Dest:   &board.Location{StageID: stage.ID},
	})
	if err != nil {
		return nil, MoveDealOutput{}, h.failure(err)
	}

	r := h.dealResult(id)
	return nil, MoveDealOutput{Phase: res.Phase.String(), Deal: r.Deal, Notice: r.Notice}, nil
}

type DeleteDealInput struct {
	DealID  string `json:"deal_id" jsonschema:"UUID of the deal (required)"`
	Confirm bool   `json:"confirm" jsonschema:"Must be true; deletion cannot be undone"`
}

type DeleteDealOutput struct {
	Deleted bool          `json:"deleted"`
	Notice  *NoticeOutput `json:"notice,omitempty"`
}

func (h *BoardHandlers) DeleteDeal(ctx context.Context, request *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteDealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DeleteDealOutput{}, err
	}
	confirm := func(string) bool { return input.Confirm }
	if err := h.store.DeleteDeal(ctx, id, confirm); err != nil {
		return nil, DeleteDealOutput{}, h.failure(err)
	}

	// Without confirmation the store cancels and reports it in the notice.
	return nil, DeleteDealOutput{
		Deleted: input.Confirm,
		Notice:  noticeToOutput(h.store.Snapshot().Notice),
	}, nil
}

func (h *BoardHandlers) dealResult(id uuid.UUID) DealResult {
	snap := h.store.Snapshot()
	var out DealResult
	if d, ok := h.store.Deal(id); ok {
		out.Deal = dealToOutput(d, snap.Stages)
	}
	out.Notice = noticeToOutput(snap.Notice)
	return out
}
