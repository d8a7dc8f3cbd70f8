// ABOUTME: Visualization CLI commands
// ABOUTME: Prints pipeline stats or a graphviz rendering of the pipeline
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/viz"
	"github.com/rs/zerolog"
)

// VizCommand renders the selected pipeline as text stats or graphviz source.
func VizCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("viz", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: text or dot")
	output := fs.String("output", "", "Output file (default: stdout)")
	pipeline := fs.String("pipeline", "", "Pipeline name or ID (default: the default pipeline)")
	_ = fs.Parse(args)

	store, _, err := openBoard(ctx, cfg, logger, *pipeline)
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	if snap.Pipeline == nil {
		return fmt.Errorf("no pipelines found")
	}

	var out string
	switch *format {
	case "text":
		out = viz.RenderStats(viz.ComputeStats(*snap.Pipeline, snap.Deals))
	case "dot":
		out, err = viz.PipelineGraph(ctx, *snap.Pipeline, snap.Deals)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format: %s (use text or dot)", *format)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *output, err)
		}
		_, _ = fmt.Fprintf(stdout, "✓ Wrote %s\n", *output)
		return nil
	}
	_, _ = fmt.Fprintln(stdout, out)
	return nil
}
