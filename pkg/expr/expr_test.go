package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T) Value {
	t.Helper()
	return FromAny(map[string]any{
		"metrics": map[string]any{
			"testing": map[string]any{
				"coverage_report": map[string]any{"percentage": nil},
				"test_execution":  map[string]any{"tests_run": float64(7)},
			},
		},
		"execution": map[string]any{
			"errors": []any{},
		},
	})
}

func evalBool(t *testing.T, src string, rec Value, basePath []string) bool {
	t.Helper()
	node, err := Parse(src)
	require.NoError(t, err)
	v, _, err := Eval(node, rec, basePath)
	require.NoError(t, err)
	require.Equal(t, KindBool, v.Kind)
	return v.Bool
}

func TestParenthesizedPrecedence(t *testing.T) {
	rec := record(t)
	base := []string{"metrics", "testing"}
	got := evalBool(t, "coverage_report.percentage >= 30 OR (coverage_report.percentage == null AND test_execution.tests_run >= 5)", rec, base)
	assert.True(t, got)
}

func TestOrVsAndGrouping(t *testing.T) {
	rec := FromAny(map[string]any{"a": true, "b": false, "c": false})
	assert.True(t, evalBool(t, "a OR (b AND c)", rec, nil))
	assert.False(t, evalBool(t, "(a OR b) AND c", rec, nil))
}

func TestButIsSynonymForAnd(t *testing.T) {
	rec := FromAny(map[string]any{"a": true, "b": true})
	assert.Equal(t,
		evalBool(t, "a AND b", rec, nil),
		evalBool(t, "a BUT b", rec, nil))
}

func TestEmptyArrayLiteralEquality(t *testing.T) {
	emptyRec := FromAny(map[string]any{"execution": map[string]any{"errors": []any{}}})
	nonEmptyRec := FromAny(map[string]any{"execution": map[string]any{"errors": []any{"x"}}})
	assert.True(t, evalBool(t, "execution.errors == []", emptyRec, nil))
	assert.False(t, evalBool(t, "execution.errors == []", nonEmptyRec, nil))
}

func TestLengthAccessorEquivalence(t *testing.T) {
	emptyRec := FromAny(map[string]any{"execution": map[string]any{"errors": []any{}}})
	a := evalBool(t, "execution.errors == []", emptyRec, nil)
	b := evalBool(t, "execution.errors.length == 0", emptyRec, nil)
	assert.Equal(t, a, b)
}

func TestLengthOnNonArrayIsTypeError(t *testing.T) {
	rec := FromAny(map[string]any{"metrics": map[string]any{"code_quality": map[string]any{"build_success": true}}})
	node, err := Parse("code_quality.build_success.length == 0")
	require.NoError(t, err)
	_, _, err = Eval(node, rec, []string{"metrics"})
	var typeErr *TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestMissingPathComparesFalseExceptAgainstNull(t *testing.T) {
	rec := FromAny(map[string]any{"metrics": map[string]any{}})
	base := []string{"metrics", "code_quality"}
	assert.False(t, evalBool(t, "build_success == true", rec, base))
	assert.True(t, evalBool(t, "build_success == null", rec, base))
}

func TestNoTypeCoercion(t *testing.T) {
	rec := FromAny(map[string]any{"a": float64(0), "b": "0"})
	assert.False(t, evalBool(t, "a == false", rec, nil))
	assert.False(t, evalBool(t, "b == 0", rec, nil))
}

func TestPathRootingPrefersRecordTopLevel(t *testing.T) {
	rec := record(t)
	// "metrics.testing.test_execution.tests_run" already starts with a
	// top-level record key, so it must resolve against the record
	// directly even though basePath also points into metrics.testing —
	// otherwise this would double-prefix into metrics.testing.metrics....
	base := []string{"metrics", "testing"}
	got := evalBool(t, "metrics.testing.test_execution.tests_run >= 5", rec, base)
	assert.True(t, got)
}

func TestParseErrorIsReported(t *testing.T) {
	_, err := Parse("coverage >= ")
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
