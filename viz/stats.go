// ABOUTME: Per-stage pipeline statistics and terminal rendering
// ABOUTME: Counts, values and probability-weighted values for each stage in board order
package viz

import (
	"fmt"
	"strings"

	"github.com/harperreed/pipeboard/models"
)

type StageStats struct {
	Stage    models.Stage
	Count    int
	Value    int64 // in cents
	Weighted int64 // Value scaled by the stage probability
}

type PipelineStats struct {
	Pipeline      string
	Currency      string
	Stages        []StageStats
	TotalDeals    int
	TotalValue    int64
	WeightedValue int64
	// Unplaced counts deals whose stage is not part of the pipeline.
	Unplaced int
}

// ComputeStats summarises deals over the pipeline's stages in position order.
func ComputeStats(p models.Pipeline, deals []models.Deal) PipelineStats {
	stats := PipelineStats{Pipeline: p.Name}
	index := make(map[string]int)
	for i, st := range p.OrderedStages() {
		stats.Stages = append(stats.Stages, StageStats{Stage: st})
		index[st.ID.String()] = i
	}

	for _, d := range deals {
		if stats.Currency == "" {
			stats.Currency = d.Currency
		}
		i, ok := index[d.StageID.String()]
		if !ok {
			stats.Unplaced++
			continue
		}
		s := &stats.Stages[i]
		s.Count++
		s.Value += d.Value
		s.Weighted += d.Value * int64(s.Stage.Probability) / 100

		stats.TotalDeals++
		stats.TotalValue += d.Value
		stats.WeightedValue += d.Value * int64(s.Stage.Probability) / 100
	}
	return stats
}

// FormatMoney renders cents compactly, e.g. $950, $12.3K, $1.2M.
func FormatMoney(cents int64, currency string) string {
	prefix := "$"
	if currency != "" && !strings.EqualFold(currency, "USD") {
		prefix = strings.ToUpper(currency) + " "
	}
	units := float64(cents) / 100
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	switch {
	case units >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, prefix, units/1_000_000)
	case units >= 1_000:
		return fmt.Sprintf("%s%s%.1fK", sign, prefix, units/1_000)
	}
	return fmt.Sprintf("%s%s%.0f", sign, prefix, units)
}

func RenderStats(stats PipelineStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString(fmt.Sprintf("  %s\n", strings.ToUpper(stats.Pipeline)))
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	if len(stats.Stages) == 0 {
		out.WriteString("  No stages yet\n")
		return out.String()
	}

	maxCount := 0
	width := 0
	for _, s := range stats.Stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
		if len(s.Stage.Name) > width {
			width = len(s.Stage.Name)
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stats.Stages {
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-*s %s %3d  %8s  (%3d%% → %s)\n",
			width, s.Stage.Name, bar, s.Count,
			FormatMoney(s.Value, stats.Currency), s.Stage.Probability,
			FormatMoney(s.Weighted, stats.Currency)))
	}

	out.WriteString(fmt.Sprintf("\n  %d deals  %s total  %s weighted\n",
		stats.TotalDeals, FormatMoney(stats.TotalValue, stats.Currency), FormatMoney(stats.WeightedValue, stats.Currency)))
	if stats.Unplaced > 0 {
		out.WriteString(fmt.Sprintf("  ⚠️  %d deals in unknown stages\n", stats.Unplaced))
	}
	return out.String()
}
