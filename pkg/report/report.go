// Package report renders a scorecard as the human-readable
// evaluation_report.md artifact (§6.2).
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reposcore/reposcore/pkg/model"
)

// Render produces the Markdown body for evaluation_report.md, in the
// stable section order: Overview -> Category Breakdown -> Per-item
// details -> Evidence appendix.
func Render(sc model.Scorecard) string {
	var b strings.Builder

	renderOverview(&b, sc)
	renderCategoryBreakdown(&b, sc)
	renderItemDetails(&b, sc)
	renderEvidenceAppendix(&b, sc)

	return b.String()
}

func renderOverview(b *strings.Builder, sc model.Scorecard) {
	fmt.Fprintf(b, "# Scorecard: %s\n\n", sc.RepositoryInfo.SourceURL)
	fmt.Fprintf(b, "## Overview\n\n")
	fmt.Fprintf(b, "- Commit: `%s`\n", sc.RepositoryInfo.CommitSHA)
	fmt.Fprintf(b, "- Language: %s\n", sc.RepositoryInfo.Language)
	fmt.Fprintf(b, "- Total score: **%.1f / %.1f** (%.1f%%)\n", sc.TotalScore, sc.MaxPossibleScore, sc.ScorePercentage)
	fmt.Fprintf(b, "- Generated: %s\n", sc.EvaluationMetadata.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(b, "- Duration: %.1fs\n", sc.EvaluationMetadata.DurationSeconds)
	if len(sc.EvaluationMetadata.ToolsUsed) > 0 {
		fmt.Fprintf(b, "- Tools used: %s\n", strings.Join(sc.EvaluationMetadata.ToolsUsed, ", "))
	}
	b.WriteString("\n")
}

func renderCategoryBreakdown(b *strings.Builder, sc model.Scorecard) {
	fmt.Fprintf(b, "## Category Breakdown\n\n")
	fmt.Fprintf(b, "| Dimension | Awarded | Max | Percentage | Grade |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|\n")
	for _, dim := range sortedDimensions(sc.CategoryBreakdowns) {
		d := sc.CategoryBreakdowns[dim]
		fmt.Fprintf(b, "| %s | %.1f | %.1f | %.1f%% | %s |\n", dim, d.Awarded, d.Max, d.Percentage, d.Grade)
	}
	b.WriteString("\n")
}

func renderItemDetails(b *strings.Builder, sc model.Scorecard) {
	fmt.Fprintf(b, "## Per-item Details\n\n")
	for _, item := range sc.ChecklistItems {
		fmt.Fprintf(b, "### %s (%s)\n\n", item.Name, item.ID)
		fmt.Fprintf(b, "- Dimension: %s\n", item.Dimension)
		fmt.Fprintf(b, "- Status: **%s**\n", item.EvaluationStatus)
		fmt.Fprintf(b, "- Score: %.1f / %.1f\n\n", item.Score, item.MaxPoints)
	}
}

func renderEvidenceAppendix(b *strings.Builder, sc model.Scorecard) {
	fmt.Fprintf(b, "## Evidence Appendix\n\n")
	for _, ev := range sc.EvidenceSummary {
		fmt.Fprintf(b, "- `%s` [%s] (confidence %.1f): %s\n", ev.ItemID, ev.SourceType, ev.Confidence, ev.Description)
	}
}

func sortedDimensions(breakdowns map[string]model.DimensionBreakdown) []string {
	dims := make([]string, 0, len(breakdowns))
	for d := range breakdowns {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}
