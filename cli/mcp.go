// ABOUTME: MCP server subcommand
// ABOUTME: Serves the board tools, resources and prompts over stdio
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// MCPCommand starts the MCP server on stdio.
func MCPCommand(cfg *config.Config, logger zerolog.Logger, version string) error {
	ctx := context.Background()
	logger.Info().Str("server", cfg.Client.BaseURL).Msg("starting pipeboard MCP server")

	store, client, err := openBoard(ctx, cfg, logger, "")
	if err != nil {
		return err
	}

	h := handlers.NewBoardHandlers(
		store,
		board.NewDragController(store),
		board.NewSequenceCoordinator(store, client),
		board.NewOutreach(store, client, nil),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pipeboard",
		Version: version,
	}, nil)
	handlers.Register(server, h)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
