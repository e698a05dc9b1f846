package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
checklist_items:
  - id: lint_clean
    name: Lint passes cleanly
    dimension: code_quality
    max_points: 40
    met:
      - "lint_results.passed == true"
    unmet:
      - "lint_results.passed == false"
    metrics_mapping:
      source_path: metrics.code_quality
      required_fields: ["lint_results"]
  - id: tests_pass
    name: Tests pass
    dimension: testing
    max_points: 35
    met:
      - "test_execution.tests_failed == 0 AND test_execution.tests_passed > 0"
    metrics_mapping:
      source_path: metrics.testing
      required_fields: ["test_execution"]
  - id: readme
    name: README present
    dimension: documentation
    max_points: 25
    met:
      - "readme_present == true"
    metrics_mapping:
      source_path: metrics.documentation
      required_fields: ["readme_present"]
`

func TestLoadValidRubric(t *testing.T) {
	r, err := Parse([]byte(validYAML), "inline")
	require.NoError(t, err)
	assert.Len(t, r.ChecklistItems, 3)
	assert.Equal(t, "lint_clean", r.ChecklistItems[0].ID)
}

func TestRubricRejectsBadPointTotal(t *testing.T) {
	bad := `
checklist_items:
  - id: only_item
    name: Only
    dimension: code_quality
    max_points: 50
    met: ["true == true"]
    metrics_mapping:
      source_path: metrics.code_quality
`
	_, err := Parse([]byte(bad), "inline")
	require.Error(t, err)
}

func TestRubricRejectsDuplicateIDs(t *testing.T) {
	bad := `
checklist_items:
  - id: dup
    name: A
    dimension: code_quality
    max_points: 50
    met: ["true == true"]
    metrics_mapping: { source_path: metrics.code_quality }
  - id: dup
    name: B
    dimension: testing
    max_points: 50
    met: ["true == true"]
    metrics_mapping: { source_path: metrics.testing }
`
	_, err := Parse([]byte(bad), "inline")
	require.Error(t, err)
}

func TestRubricRejectsEmptyCriteria(t *testing.T) {
	bad := `
checklist_items:
  - id: empty
    name: Empty criteria
    dimension: code_quality
    max_points: 100
    metrics_mapping: { source_path: metrics.code_quality }
`
	_, err := Parse([]byte(bad), "inline")
	require.Error(t, err)
}
