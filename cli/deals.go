// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for listing, adding, moving, deleting and enrolling deals
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/viz"
	"github.com/rs/zerolog"
)

// ListDealsCommand prints the board one stage at a time.
func ListDealsCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("deals", flag.ExitOnError)
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	search := fs.String("search", "", "Match title, contact name or company")
	company := fs.String("company", "", "Filter by contact company")
	status := fs.String("status", "", "Filter by contact status (lead, prospect, customer, churned)")
	_ = fs.Parse(args)

	store, _, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}
	store.SetCriteria(models.FilterCriteria{Search: *search, Company: *company, Status: *status})
	snap := store.Snapshot()

	if snap.Pipeline == nil {
		_, _ = fmt.Fprintln(stdout, "No pipelines found")
		return nil
	}
	if len(snap.Deals) == 0 {
		_, _ = fmt.Fprintf(stdout, "No deals found in %s\n", snap.Pipeline.Name)
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tTITLE\tCONTACT\tVALUE\tPRIORITY\tID")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-------\t-----\t--------\t--")

	var total int64
	for _, stage := range snap.Stages {
		for _, d := range snap.Column(stage.ID) {
			contact := "-"
			if d.Contact != nil {
				contact = d.Contact.Name
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				stage.Name, d.Title, contact, viz.FormatMoney(d.Value, d.Currency), d.Priority, d.ID.String()[:8])
			total += d.Value
		}
	}
	_ = w.Flush()

	currency := snap.Deals[0].Currency
	_, _ = fmt.Fprintf(stdout, "\nTotal: %d deal(s) - %s\n", len(snap.Deals), viz.FormatMoney(total, currency))
	if len(snap.Unplaced) > 0 {
		_, _ = fmt.Fprintf(stdout, "Warning: %d deal(s) in unknown stages\n", len(snap.Unplaced))
	}
	return nil
}

// AddDealCommand creates a deal in the first stage.
func AddDealCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title (required)")
	contact := fs.String("contact", "", "Contact ID or name (required)")
	value := fs.Int64("value", 0, "Deal value in cents")
	currency := fs.String("currency", "USD", "Currency code")
	priority := fs.String("priority", "medium", "Priority (high, medium, low)")
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	if *contact == "" {
		return fmt.Errorf("--contact is required")
	}
	p, ok := models.ParsePriority(*priority)
	if !ok {
		return fmt.Errorf("invalid priority: %s", *priority)
	}

	store, client, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}

	contactID, err := uuid.Parse(*contact)
	if err != nil {
		contacts, err := client.ListContacts(ctx, *contact)
		if err != nil {
			return fmt.Errorf("failed to lookup contact: %w", err)
		}
		if len(contacts) != 1 {
			return fmt.Errorf("%d contacts match %q; use the contact ID", len(contacts), *contact)
		}
		contactID = contacts[0].ID
	}

	deal, err := store.CreateDeal(ctx, models.DealInput{
		Title:     *title,
		Value:     *value,
		Currency:  *currency,
		ContactID: contactID,
		Priority:  p,
	})
	if err != nil {
		return noticeError(store, err)
	}

	snap := store.Snapshot()
	stage := "-"
	for _, s := range snap.Stages {
		if s.ID == deal.StageID {
			stage = s.Name
		}
	}
	_, _ = fmt.Fprintf(stdout, "✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
	_, _ = fmt.Fprintf(stdout, "  Value: %s\n", viz.FormatMoney(deal.Value, deal.Currency))
	_, _ = fmt.Fprintf(stdout, "  Stage: %s\n", stage)
	return nil
}

// MoveDealCommand moves a deal to another stage of its pipeline.
func MoveDealCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	_ = fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: move [--pipeline <name>] <deal-id> <stage>")
	}

	store, _, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}
	deal, err := findDeal(store, fs.Arg(0))
	if err != nil {
		return err
	}
	stage, err := findStage(store.Snapshot(), fs.Arg(1))
	if err != nil {
		return err
	}

	drag := board.NewDragController(store)
	res, err := drag.OnDrop(ctx, board.DropEvent{
		DealID: deal.ID,
		Source: board.Location{StageID: deal.StageID},
		Dest:   &board.Location{StageID: stage.ID},
	})
	if err != nil {
		return noticeError(store, err)
	}
	if res.Phase == board.PhaseIdle {
		_, _ = fmt.Fprintf(stdout, "%s is already in %s\n", deal.Title, stage.Name)
		return nil
	}
	printNotice(store)
	return nil
}

// DeleteDealCommand deletes a deal after confirmation.
func DeleteDealCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: delete-deal [--yes] <id>")
	}

	store, _, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}
	deal, err := findDeal(store, fs.Arg(0))
	if err != nil {
		return err
	}

	confirm := askUser
	if *yes {
		confirm = board.Confirmed
	}
	if err := store.DeleteDeal(ctx, deal.ID, confirm); err != nil {
		return noticeError(store, err)
	}
	printNotice(store)
	return nil
}

// EnrollCommand enrolls a deal's contact in a sequence and advances the deal.
func EnrollCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	sequence := fs.String("sequence", "", "Sequence name or ID (omit to list active sequences)")
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: enroll [--sequence <name>] <deal-id>")
	}

	store, client, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}
	deal, err := findDeal(store, fs.Arg(0))
	if err != nil {
		return err
	}

	coord := board.NewSequenceCoordinator(store, client)
	prompt, err := coord.Prepare(ctx, deal.ID)
	if err != nil {
		return noticeError(store, err)
	}

	if prompt.Kind == board.PromptRedirect {
		r := prompt.Redirect
		_, _ = fmt.Fprintf(stdout, "No active sequences yet. Create one for %s <%s>, then run enroll again.\n",
			r.ContactName, r.ContactEmail)
		return nil
	}

	if *sequence == "" {
		_, _ = fmt.Fprintln(stdout, "Active sequences:")
		for _, s := range prompt.Sequences {
			_, _ = fmt.Fprintf(stdout, "  %s (%d steps)  %s\n", s.Name, s.StepCount, s.ID)
		}
		if prompt.NextStage != nil {
			_, _ = fmt.Fprintf(stdout, "Enrolling moves the deal to %s.\n", prompt.NextStage.Name)
		}
		return nil
	}

	var chosen *models.Sequence
	for i, s := range prompt.Sequences {
		if s.ID.String() == *sequence || strings.EqualFold(s.Name, *sequence) {
			chosen = &prompt.Sequences[i]
		}
	}
	if chosen == nil {
		return fmt.Errorf("no active sequence named %s", *sequence)
	}

	outcome, err := coord.Enroll(ctx, models.EnrollmentIntent{
		DealID:     prompt.DealID,
		ContactID:  prompt.ContactID,
		SequenceID: chosen.ID,
	})
	if err != nil {
		return noticeError(store, err)
	}
	printNotice(store)
	if outcome.Partial() {
		return fmt.Errorf("enrolled, but the deal was not advanced: %w", outcome.AdvanceErr)
	}
	return nil
}
