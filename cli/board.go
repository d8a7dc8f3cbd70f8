// ABOUTME: Interactive kanban board command
// ABOUTME: Runs the bubbletea board against the configured server
package cli

import (
	"context"
	"flag"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/tui"
	"github.com/rs/zerolog"
)

// BoardCommand opens the full-screen board. Logs must go to a file here,
// since the terminal belongs to the UI.
func BoardCommand(cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("board", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	store := board.NewStore(client,
		board.WithLogger(logger),
		board.WithSearchDebounce(cfg.Client.SearchDebounce),
	)

	model := tui.NewModel(ctx, tui.Deps{
		Store:    store,
		Drag:     board.NewDragController(store),
		Seqs:     board.NewSequenceCoordinator(store, client),
		Outreach: board.NewOutreach(store, client, nil),
		Log:      logger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run board: %w", err)
	}
	return nil
}
