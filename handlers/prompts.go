// ABOUTME: MCP prompt templates for pipeline reviews
// ABOUTME: Builds deal-review and pipeline-health prompts from board state
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/pipeboard/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetPrompt generates the prompt message based on the template
func (h *BoardHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "deal-review":
		return h.dealReviewPrompt(request.Params.Arguments)
	case "pipeline-health":
		return h.pipelineHealthPrompt()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *BoardHandlers) dealReviewPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("deal_id", args["deal_id"])
	if err != nil {
		return nil, err
	}
	deal, ok := h.store.Deal(id)
	if !ok {
		return nil, fmt.Errorf("deal %s is not on the selected board", id)
	}
	d := dealToOutput(deal, h.store.Snapshot().Stages)

	var b strings.Builder
	fmt.Fprintf(&b, "Review the deal %q.\n\n", d.Title)
	fmt.Fprintf(&b, "- Stage: %s\n", d.Stage)
	fmt.Fprintf(&b, "- Value: %s\n", d.Display)
	fmt.Fprintf(&b, "- Priority: %s\n", d.Priority)
	if d.ContactName != "" {
		fmt.Fprintf(&b, "- Contact: %s", d.ContactName)
		if d.Company != "" {
			fmt.Fprintf(&b, " at %s", d.Company)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("- Contact: none\n")
	}
	b.WriteString("\nSuggest the next step: move it with move_deal, enroll the contact with enroll_deal, or schedule a follow-up with create_task.")

	return &mcp.GetPromptResult{
		Description: "Deal review for " + d.Title,
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: b.String(),
				},
			},
		},
	}, nil
}

func (h *BoardHandlers) pipelineHealthPrompt() (*mcp.GetPromptResult, error) {
	snap := h.store.Snapshot()
	if snap.Pipeline == nil {
		return nil, fmt.Errorf("no pipeline selected")
	}
	summary := viz.RenderStats(viz.ComputeStats(*snap.Pipeline, snap.Deals))

	return &mcp.GetPromptResult{
		Description: "Pipeline health for " + snap.Pipeline.Name,
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: "Here is the current pipeline:\n\n" + summary +
						"\nWhere are deals piling up, and which stage conversions need attention?",
				},
			},
		},
	}, nil
}
