// ABOUTME: MCP resources exposing the board read-only
// ABOUTME: Serves pipeboard://board and pipeboard://pipelines as JSON
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	BoardURI     = "pipeboard://board"
	PipelinesURI = "pipeboard://pipelines"
)

// ReadResource handles resource read requests
func (h *BoardHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI

	var payload any
	switch uri {
	case BoardURI:
		if h.store.Snapshot().Pipeline == nil {
			if err := h.store.LoadPipelines(ctx); err != nil {
				return nil, h.failure(err)
			}
		}
		payload = boardToOutput(h.store.Snapshot())
	case PipelinesURI:
		_, out, err := h.ListPipelines(ctx, nil, ListPipelinesInput{})
		if err != nil {
			return nil, err
		}
		payload = out
	default:
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
