package checklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcore/reposcore/pkg/evidence"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/rubric"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func happyPathRecord() *model.Record {
	return &model.Record{
		Metrics: model.Metrics{
			CodeQuality: model.CodeQuality{
				LintResults:  model.LintResults{ToolUsed: "ruff", Passed: boolPtr(true)},
				BuildSuccess: boolPtr(true),
			},
			Testing: model.Testing{
				TestExecution:  model.TestExecution{TestsPassed: 42, TestsFailed: 0},
				CoverageReport: model.CoverageReport{Percentage: floatPtr(87)},
			},
			Documentation: model.Documentation{
				ReadmePresent:     true,
				APIDocumentation:  true,
				SetupInstructions: true,
				UsageExamples:     true,
			},
		},
	}
}

func sampleRubric(t *testing.T) *rubric.Rubric {
	t.Helper()
	r, err := rubric.Parse([]byte(`
checklist_items:
  - id: lint_clean
    name: Lint passes cleanly
    dimension: code_quality
    max_points: 40
    met: ["lint_results.passed == true"]
    unmet: ["lint_results.passed == false"]
    metrics_mapping: { source_path: metrics.code_quality }
  - id: tests_pass
    name: Tests pass
    dimension: testing
    max_points: 35
    met: ["test_execution.tests_failed == 0 AND test_execution.tests_passed > 0"]
    metrics_mapping: { source_path: metrics.testing }
  - id: readme
    name: README present
    dimension: documentation
    max_points: 25
    met: ["readme_present == true"]
    metrics_mapping: { source_path: metrics.documentation }
`), "inline")
	require.NoError(t, err)
	return r
}

func TestHappyPathScoresFull(t *testing.T) {
	r := sampleRubric(t)
	tracker := evidence.NewTracker()
	items, err := Evaluate(r, happyPathRecord(), tracker)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var total float64
	for _, it := range items {
		assert.Equal(t, model.StatusMet, it.EvaluationStatus)
		assert.Equal(t, it.MaxPoints, it.Score)
		total += it.Score
	}
	assert.Equal(t, 100.0, total)
	assert.NotEmpty(t, tracker.Summary())
}

func TestZeroValueRecordYieldsUnmet(t *testing.T) {
	r := sampleRubric(t)
	rec := &model.Record{} // no metrics populated
	tracker := evidence.NewTracker()
	items, err := Evaluate(r, rec, tracker)
	require.NoError(t, err)
	for _, it := range items {
		assert.Equal(t, model.StatusUnmet, it.EvaluationStatus)
		assert.Equal(t, 0.0, it.Score)
	}
}

func TestPartialAwardsHalfPointsRounded(t *testing.T) {
	r, err := rubric.Parse([]byte(`
checklist_items:
  - id: lint_attempted
    name: Lint attempted
    dimension: code_quality
    max_points: 33
    met: ["lint_results.passed == true"]
    partial: ["lint_results.tool_used != \"none\""]
    metrics_mapping: { source_path: metrics.code_quality }
  - id: filler_testing
    name: filler
    dimension: testing
    max_points: 34
    met: ["true == true"]
    metrics_mapping: { source_path: metrics.testing }
  - id: filler_docs
    name: filler
    dimension: documentation
    max_points: 33
    met: ["true == true"]
    metrics_mapping: { source_path: metrics.documentation }
`), "inline")
	require.NoError(t, err)

	rec := &model.Record{
		Metrics: model.Metrics{
			CodeQuality: model.CodeQuality{
				LintResults: model.LintResults{ToolUsed: "ruff", Passed: boolPtr(false)},
			},
		},
	}
	tracker := evidence.NewTracker()
	items, err := Evaluate(r, rec, tracker)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, items[0].EvaluationStatus)
	assert.Equal(t, 16.5, items[0].Score)
}

func TestNullBuildToolFieldYieldsMissingPathConfidence(t *testing.T) {
	r, err := rubric.Parse([]byte(`
checklist_items:
  - id: build_succeeds
    name: Build succeeds
    dimension: code_quality
    max_points: 100
    met: ["build_success == true"]
    unmet: ["build_success == false"]
    metrics_mapping: { source_path: metrics.code_quality }
`), "inline")
	require.NoError(t, err)

	// BuildSuccess is a nullable *bool left nil: json.Marshal emits an
	// explicit "build_success": null rather than omitting the key, so the
	// path resolves but must still count as not-found.
	rec := &model.Record{
		Metrics: model.Metrics{
			CodeQuality: model.CodeQuality{},
		},
	}
	tracker := evidence.NewTracker()
	items, err := Evaluate(r, rec, tracker)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusUnmet, items[0].EvaluationStatus)

	summary := tracker.Summary()
	require.NotEmpty(t, summary)
	for _, e := range summary {
		assert.Equal(t, 0.7, e.Confidence)
	}
}

func TestMultipleCriteriaInSameStatusListProduceDistinctEvidence(t *testing.T) {
	r, err := rubric.Parse([]byte(`
checklist_items:
  - id: docs_complete
    name: Documentation complete
    dimension: documentation
    max_points: 100
    met: ["readme_present == true", "api_documentation == true", "usage_examples == true"]
    metrics_mapping: { source_path: metrics.documentation }
`), "inline")
	require.NoError(t, err)

	tracker := evidence.NewTracker()
	items, err := Evaluate(r, happyPathRecord(), tracker)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].EvidenceReferences, 3)

	root := t.TempDir()
	require.NoError(t, tracker.Persist(root))

	entries, err := os.ReadDir(filepath.Join(root, "documentation"))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "each criterion's evidence must land in its own file, not overwrite its siblings")
}

func TestParseErrorRecordsLowConfidenceEvidenceAndDoesNotAbort(t *testing.T) {
	r, err := rubric.Parse([]byte(`
checklist_items:
  - id: broken
    name: Broken criterion
    dimension: code_quality
    max_points: 100
    met: ["coverage >= "]
    metrics_mapping: { source_path: metrics.code_quality }
`), "inline")
	require.NoError(t, err)

	tracker := evidence.NewTracker()
	items, err := Evaluate(r, happyPathRecord(), tracker)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnmet, items[0].EvaluationStatus)
	summary := tracker.Summary()
	require.Len(t, summary, 1)
	assert.Equal(t, 0.3, summary[0].Confidence)
}
