// ABOUTME: Graphviz rendering of a pipeline as a left-to-right chain of stages
// ABOUTME: Each stage node carries its deal count, value and weighted value
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/pipeboard/models"
)

// PipelineGraph renders the pipeline in xdot format.
func PipelineGraph(ctx context.Context, p models.Pipeline, deals []models.Deal) (string, error) {
	stats := ComputeStats(p, deals)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(fmt.Sprintf("%s (%d deals, %s weighted)",
		p.Name, stats.TotalDeals, FormatMoney(stats.WeightedValue, stats.Currency)))
	graph.SetRankDir(cgraph.LRRank)

	var prev *cgraph.Node
	for i, s := range stats.Stages {
		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%d deals\n%s\n%d%% → %s",
			s.Stage.Name, s.Count, FormatMoney(s.Value, stats.Currency),
			s.Stage.Probability, FormatMoney(s.Weighted, stats.Currency)))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(stageColor(s.Stage))

		if prev != nil {
			if _, err := graph.CreateEdgeByName(fmt.Sprintf("next_%d", i), prev, node); err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
		}
		prev = node
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func stageColor(s models.Stage) string {
	if s.Color != "" {
		return s.Color
	}
	switch {
	case s.Probability >= 100:
		return "lightgreen"
	case s.Probability >= 50:
		return "lightyellow"
	}
	return "lightblue"
}
