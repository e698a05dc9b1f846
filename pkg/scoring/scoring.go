// Package scoring derives the final Scorecard from scored items, the
// repository descriptor, and the accumulated evidence summary (§4.9).
package scoring

import (
	"time"

	"github.com/reposcore/reposcore/pkg/constants"
	"github.com/reposcore/reposcore/pkg/model"
)

// BuildInput bundles everything the mapper needs.
type BuildInput struct {
	Repository      model.Repository
	ScoredItems     []model.ScoredItem
	EvidenceSummary []model.Evidence
	ToolsUsed       []string
	DurationSeconds float64
	RubricVersion   string
}

// Build computes the scorecard per §4.9: per-dimension awarded/max/
// percentage/grade, total score, and score percentage.
func Build(in BuildInput) model.Scorecard {
	breakdowns := make(map[string]model.DimensionBreakdown)
	dimensionOrder := []string{"code_quality", "testing", "documentation"}
	for _, d := range dimensionOrder {
		breakdowns[d] = model.DimensionBreakdown{}
	}

	var total float64
	for _, item := range in.ScoredItems {
		b := breakdowns[item.Dimension]
		b.Awarded += item.Score
		b.Max += item.MaxPoints
		breakdowns[item.Dimension] = b
		total += item.Score
	}

	for dim, b := range breakdowns {
		if b.Max > 0 {
			b.Percentage = b.Awarded / b.Max * 100
		}
		b.Grade = gradeFor(b.Percentage)
		breakdowns[dim] = b
	}

	return model.Scorecard{
		RepositoryInfo:   in.Repository,
		ChecklistItems:   in.ScoredItems,
		TotalScore:       total,
		MaxPossibleScore: constants.MaxPossibleScore,
		ScorePercentage:  total / constants.MaxPossibleScore * 100,
		CategoryBreakdowns: breakdowns,
		EvaluationMetadata: model.EvaluationMetadata{
			GeneratedAt:     time.Now().UTC(),
			ToolsUsed:       in.ToolsUsed,
			DurationSeconds: in.DurationSeconds,
			RubricVersion:   in.RubricVersion,
		},
		EvidenceSummary: in.EvidenceSummary,
	}
}

// gradeFor applies the fixed A/B/C/D/F thresholds from constants.GradeThresholds.
func gradeFor(percentage float64) string {
	for _, t := range constants.GradeThresholds {
		if percentage >= t.MinPct {
			return t.Grade
		}
	}
	return "F"
}
