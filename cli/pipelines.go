// ABOUTME: Pipeline CLI commands
// ABOUTME: Lists pipelines with their stages and creates new ones
package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/models"
	"github.com/rs/zerolog"
)

// ListPipelinesCommand prints each pipeline and its stages in board order.
func ListPipelinesCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("pipelines", flag.ExitOnError)
	_ = fs.Parse(args)

	store, _, err := openBoard(ctx, cfg, logger, "")
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	if len(snap.Pipelines) == 0 {
		_, _ = fmt.Fprintln(stdout, "No pipelines found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTAGES\tDEFAULT\tID")
	_, _ = fmt.Fprintln(w, "----\t------\t-------\t--")
	for _, p := range snap.Pipelines {
		names := make([]string, 0, len(p.Stages))
		for _, s := range p.OrderedStages() {
			names = append(names, fmt.Sprintf("%s (%d%%)", s.Name, s.Probability))
		}
		def := ""
		if p.IsDefault {
			def = "yes"
		}
		if !p.Active {
			def = "inactive"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, strings.Join(names, " → "), def, p.ID)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(stdout, "\nTotal: %d pipeline(s)\n", len(snap.Pipelines))
	return nil
}

// AddPipelineCommand creates a pipeline and its stages in the given order.
func AddPipelineCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-pipeline", flag.ExitOnError)
	name := fs.String("name", "", "Pipeline name (required)")
	description := fs.String("description", "", "Description")
	stages := fs.String("stages", "", "Comma-separated stages, optionally with a win probability: Lead:10,Qualified:40,Won:100")
	isDefault := fs.Bool("default", false, "Make this the default pipeline")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	forms, err := parseStageList(*stages)
	if err != nil {
		return err
	}

	store, _, err := openBoard(ctx, cfg, logger, "")
	if err != nil {
		return err
	}

	p, err := store.SavePipeline(ctx, models.PipelineForm{
		Name:        *name,
		Description: *description,
		IsDefault:   *isDefault,
		Active:      true,
	})
	if err != nil {
		return noticeError(store, err)
	}
	_, _ = fmt.Fprintf(stdout, "✓ Pipeline created: %s (ID: %s)\n", p.Name, p.ID)

	for _, form := range forms {
		stage, err := store.SaveStage(ctx, p.ID, form)
		if err != nil {
			return noticeError(store, err)
		}
		_, _ = fmt.Fprintf(stdout, "  ✓ Stage %d: %s (%d%%)\n", stage.Position+1, stage.Name, stage.Probability)
	}
	return nil
}

func parseStageList(raw string) ([]models.StageForm, error) {
	var forms []models.StageForm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		form := models.StageForm{Name: part}
		if name, prob, ok := strings.Cut(part, ":"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(prob))
			if err != nil || n < 0 || n > 100 {
				return nil, fmt.Errorf("invalid probability for stage %s: %s", name, prob)
			}
			form.Name = strings.TrimSpace(name)
			form.Probability = n
		}
		forms = append(forms, form)
	}
	return forms, nil
}
