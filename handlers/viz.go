// ABOUTME: GraphViz visualization MCP handler
// ABOUTME: Provides the pipeline_graph tool for agents
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/pipeboard/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PipelineGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"dot for graphviz source, text for a stage summary (default both)"`
}

type PipelineGraphOutput struct {
	Pipeline      string `json:"pipeline"`
	DOTSource     string `json:"dot_source,omitempty"`
	Summary       string `json:"summary,omitempty"`
	TotalDeals    int    `json:"total_deals"`
	TotalValue    int64  `json:"total_value"`
	WeightedValue int64  `json:"weighted_value"`
}

func (h *BoardHandlers) PipelineGraph(ctx context.Context, request *mcp.CallToolRequest, input PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	snap := h.store.Snapshot()
	if snap.Pipeline == nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("no pipeline selected")
	}

	stats := viz.ComputeStats(*snap.Pipeline, snap.Deals)
	out := PipelineGraphOutput{
		Pipeline:      snap.Pipeline.Name,
		TotalDeals:    stats.TotalDeals,
		TotalValue:    stats.TotalValue,
		WeightedValue: stats.WeightedValue,
	}

	switch input.Format {
	case "", "dot", "text":
	default:
		return nil, PipelineGraphOutput{}, fmt.Errorf("invalid format: %s (valid: dot, text)", input.Format)
	}

	if input.Format != "text" {
		dot, err := viz.PipelineGraph(ctx, *snap.Pipeline, snap.Deals)
		if err != nil {
			return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
		}
		out.DOTSource = dot
	}
	if input.Format != "dot" {
		out.Summary = viz.RenderStats(stats)
	}
	return nil, out, nil
}
