// ABOUTME: Shared helpers for client-side CLI commands
// ABOUTME: Builds the gateway client and board store, resolves ids and prompts for confirmation
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/gateway"
	"github.com/harperreed/pipeboard/models"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// stdout is where commands print results.
var stdout io.Writer = os.Stdout

// askUser approves destructive commands run without --yes.
var askUser board.ConfirmFunc = confirmPrompt

func newClient(cfg *config.Config, logger zerolog.Logger) (*gateway.Client, error) {
	if cfg.Client.BaseURL == "" {
		return nil, fmt.Errorf("no server configured: set client.base_url or PIPEBOARD_URL")
	}
	return gateway.New(cfg.Client.BaseURL, cfg.Client.Token, cfg.Client.Timeout, gateway.WithLogger(logger)), nil
}

// openBoard loads the board and switches to the named pipeline when one is given.
func openBoard(ctx context.Context, cfg *config.Config, logger zerolog.Logger, pipeline string) (*board.Store, *gateway.Client, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := board.NewStore(client,
		board.WithLogger(logger),
		board.WithSearchDebounce(cfg.Client.SearchDebounce),
	)
	if err := store.LoadPipelines(ctx); err != nil {
		return nil, nil, noticeError(store, err)
	}

	if pipeline != "" {
		p, err := findPipeline(store.Snapshot(), pipeline)
		if err != nil {
			return nil, nil, err
		}
		if err := store.SelectPipeline(ctx, p.ID); err != nil {
			return nil, nil, noticeError(store, err)
		}
	}
	return store, client, nil
}

func findPipeline(snap board.Snapshot, ref string) (models.Pipeline, error) {
	for _, p := range snap.Pipelines {
		if p.ID.String() == ref || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return models.Pipeline{}, fmt.Errorf("pipeline not found: %s", ref)
}

func findStage(snap board.Snapshot, ref string) (models.Stage, error) {
	for _, s := range snap.Stages {
		if s.ID.String() == ref || strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return models.Stage{}, fmt.Errorf("stage not found in %s: %s", pipelineName(snap), ref)
}

// findDeal accepts a full id or a unique prefix, as printed by `deals`.
func findDeal(store *board.Store, ref string) (models.Deal, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if d, ok := store.Deal(id); ok {
			return d, nil
		}
		return models.Deal{}, fmt.Errorf("deal not found: %s", ref)
	}

	var matches []models.Deal
	for _, d := range store.Snapshot().Deals {
		if strings.HasPrefix(d.ID.String(), strings.ToLower(ref)) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return models.Deal{}, fmt.Errorf("deal not found: %s", ref)
	case 1:
		return matches[0], nil
	}
	return models.Deal{}, fmt.Errorf("deal id %s is ambiguous", ref)
}

func pipelineName(snap board.Snapshot) string {
	if snap.Pipeline == nil {
		return "(no pipeline)"
	}
	return snap.Pipeline.Name
}

// noticeError prefers the store's user-facing message.
func noticeError(store *board.Store, err error) error {
	if n := store.Snapshot().Notice; n.IsError() {
		return fmt.Errorf("%s: %w", n.Message, err)
	}
	return err
}

func printNotice(store *board.Store) {
	n := store.Snapshot().Notice
	if n.Kind == board.NoticeNone {
		return
	}
	mark := "✓"
	switch {
	case n.IsError():
		mark = "✗"
	case n.Kind == board.NoticeCancelled:
		mark = "-"
	}
	_, _ = fmt.Fprintf(stdout, "%s %s\n", mark, n.Message)
}

// confirmPrompt reads a single y/n keypress. Without a terminal it declines.
func confirmPrompt(prompt string) bool {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return false
	}
	_, _ = fmt.Fprintf(stdout, "%s [y/N] ", prompt)

	state, err := term.MakeRaw(fd)
	if err != nil {
		return false
	}
	var b [1]byte
	_, err = os.Stdin.Read(b[:])
	_ = term.Restore(fd, state)
	_, _ = fmt.Fprintln(stdout)
	if err != nil {
		return false
	}
	return b[0] == 'y' || b[0] == 'Y'
}
