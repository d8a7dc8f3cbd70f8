// ABOUTME: Board MCP tools for pipelines, columns and filters
// ABOUTME: Implements list_pipelines, select_pipeline, list_board and filter_deals
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ListPipelinesInput struct{}

type PipelineOutput struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	IsDefault bool          `json:"is_default"`
	Active    bool          `json:"active"`
	Selected  bool          `json:"selected"`
	Stages    []StageOutput `json:"stages"`
}

type ListPipelinesOutput struct {
	Pipelines []PipelineOutput `json:"pipelines"`
}

func (h *BoardHandlers) ListPipelines(ctx context.Context, request *mcp.CallToolRequest, input ListPipelinesInput) (*mcp.CallToolResult, ListPipelinesOutput, error) {
	if err := h.store.LoadPipelines(ctx); err != nil {
		return nil, ListPipelinesOutput{}, h.failure(err)
	}
	snap := h.store.Snapshot()

	out := ListPipelinesOutput{Pipelines: make([]PipelineOutput, 0, len(snap.Pipelines))}
	for _, p := range snap.Pipelines {
		po := PipelineOutput{
			ID:        p.ID.String(),
			Name:      p.Name,
			IsDefault: p.IsDefault,
			Active:    p.Active,
			Selected:  snap.Pipeline != nil && snap.Pipeline.ID == p.ID,
			Stages:    []StageOutput{},
		}
		for _, s := range p.OrderedStages() {
			po.Stages = append(po.Stages, stageToOutput(s))
		}
		out.Pipelines = append(out.Pipelines, po)
	}
	return nil, out, nil
}

type SelectPipelineInput struct {
	PipelineID string `json:"pipeline_id,omitempty" jsonschema:"UUID of the pipeline to show"`
	Name       string `json:"name,omitempty" jsonschema:"Pipeline name, used when pipeline_id is empty"`
}

func (h *BoardHandlers) SelectPipeline(ctx context.Context, request *mcp.CallToolRequest, input SelectPipelineInput) (*mcp.CallToolResult, BoardOutput, error) {
	if input.PipelineID == "" && input.Name == "" {
		return nil, BoardOutput{}, fmt.Errorf("pipeline_id or name is required")
	}

	var target models.Pipeline
	found := false
	for _, p := range h.store.Snapshot().Pipelines {
		if p.ID.String() == input.PipelineID || (input.Name != "" && strings.EqualFold(p.Name, input.Name)) {
			target, found = p, true
			break
		}
	}
	if !found {
		return nil, BoardOutput{}, fmt.Errorf("pipeline not found")
	}

	if err := h.store.SelectPipeline(ctx, target.ID); err != nil {
		return nil, BoardOutput{}, h.failure(err)
	}
	return nil, boardToOutput(h.store.Snapshot()), nil
}

type ListBoardInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"Reload pipelines and deals from the server first"`
}

type ColumnOutput struct {
	Stage      StageOutput  `json:"stage"`
	Count      int          `json:"count"`
	TotalValue int64        `json:"total_value"`
	Deals      []DealOutput `json:"deals"`
}

type BoardOutput struct {
	PipelineID string         `json:"pipeline_id,omitempty"`
	Pipeline   string         `json:"pipeline,omitempty"`
	Columns    []ColumnOutput `json:"columns"`
	Unplaced   []DealOutput   `json:"unplaced,omitempty"`
	Filters    FiltersOutput  `json:"filters"`
	Notice     *NoticeOutput  `json:"notice,omitempty"`
}

type FiltersOutput struct {
	Search  string `json:"search,omitempty"`
	Company string `json:"company,omitempty"`
	Status  string `json:"status,omitempty"`
	TagID   string `json:"tag_id,omitempty"`
}

func boardToOutput(snap board.Snapshot) BoardOutput {
	out := BoardOutput{
		Columns: []ColumnOutput{},
		Filters: FiltersOutput{
			Search:  snap.Criteria.Search,
			Company: snap.Criteria.Company,
			Status:  snap.Criteria.Status,
		},
		Notice: noticeToOutput(snap.Notice),
	}
	if snap.Criteria.TagID != uuid.Nil {
		out.Filters.TagID = snap.Criteria.TagID.String()
	}
	if snap.Pipeline != nil {
		out.PipelineID = snap.Pipeline.ID.String()
		out.Pipeline = snap.Pipeline.Name
	}
	for _, s := range snap.Stages {
		col := ColumnOutput{Stage: stageToOutput(s), Deals: []DealOutput{}}
		for _, d := range snap.Column(s.ID) {
			col.Deals = append(col.Deals, dealToOutput(d, snap.Stages))
			col.Count++
			col.TotalValue += d.Value
		}
		out.Columns = append(out.Columns, col)
	}
	for _, d := range snap.Unplaced {
		out.Unplaced = append(out.Unplaced, dealToOutput(d, snap.Stages))
	}
	return out
}

func (h *BoardHandlers) ListBoard(ctx context.Context, request *mcp.CallToolRequest, input ListBoardInput) (*mcp.CallToolResult, BoardOutput, error) {
	if input.Refresh || h.store.Snapshot().Pipeline == nil {
		if err := h.store.LoadPipelines(ctx); err != nil {
			return nil, BoardOutput{}, h.failure(err)
		}
	}
	return nil, boardToOutput(h.store.Snapshot()), nil
}

type FilterDealsInput struct {
	Search  string `json:"search,omitempty" jsonschema:"Case-insensitive text matched against title, contact name and company"`
	Company string `json:"company,omitempty" jsonschema:"Exact contact company"`
	Status  string `json:"status,omitempty" jsonschema:"Contact lifecycle status: lead, prospect, customer, churned"`
	TagID   string `json:"tag_id,omitempty" jsonschema:"UUID of a tag the contact must carry"`
}

// FilterDeals replaces all filter criteria. Empty input clears them.
func (h *BoardHandlers) FilterDeals(_ context.Context, request *mcp.CallToolRequest, input FilterDealsInput) (*mcp.CallToolResult, BoardOutput, error) {
	tagID, err := parseOptionalID("tag_id", input.TagID)
	if err != nil {
		return nil, BoardOutput{}, err
	}
	h.store.SetCriteria(models.FilterCriteria{
		Search:  input.Search,
		Company: input.Company,
		Status:  input.Status,
		TagID:   tagID,
	})
	return nil, boardToOutput(h.store.Snapshot()), nil
}
