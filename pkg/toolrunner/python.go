package toolrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/reposcore/reposcore/pkg/model"
)

// PythonRunner probes ruff (falling back to flake8), uv build (falling back
// to the current interpreter's build module), pytest (falling back to
// unittest), and pip-audit.
type PythonRunner struct{}

func (PythonRunner) Language() model.Language { return model.LanguagePython }

type ruffFinding struct {
	Filename string `json:"filename"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (PythonRunner) RunLinting(ctx context.Context, workspace string) (model.LintResults, model.ToolExecution, error) {
	if binAvailable("ruff") {
		res := runTool(ctx, workspace, "ruff", []string{"check", "--output-format", "json", "."}, 90*time.Second)
		res.exec.Version = toolVersion(ctx, "ruff", "--version")

		var findings []ruffFinding
		if err := json.Unmarshal([]byte(res.exec.Stdout), &findings); err == nil {
			issues := make([]model.LintIssue, 0, len(findings))
			for _, f := range findings {
				issues = append(issues, model.LintIssue{
					File: f.Filename, Line: f.Location.Row, Severity: "warning", Message: f.Message, Rule: f.Code,
				})
			}
			return model.LintResults{ToolUsed: "ruff", Passed: boolPtr(len(issues) == 0), IssuesCount: len(issues), Issues: issues}, res.exec, nil
		}
		return model.LintResults{ToolUsed: "ruff", Passed: boolPtr(res.exec.ExitStatus == 0)}, res.exec, nil
	}
	if binAvailable("flake8") {
		res := runTool(ctx, workspace, "flake8", []string{"."}, 90*time.Second)
		res.exec.Version = toolVersion(ctx, "flake8", "--version")
		lines := nonEmptyLines(res.exec.Stdout)
		return model.LintResults{ToolUsed: "flake8", Passed: boolPtr(len(lines) == 0), IssuesCount: len(lines)}, res.exec, nil
	}
	return model.LintResults{ToolUsed: "none"}, notFoundExecution("ruff"), nil
}

func (PythonRunner) RunBuild(ctx context.Context, workspace string) (*bool, string, model.ToolExecution, error) {
	if binAvailable("uv") {
		res := runTool(ctx, workspace, "uv", []string{"build"}, 2*time.Minute)
		res.exec.Version = toolVersion(ctx, "uv", "--version")
		ok := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
		return boolPtr(ok), pickOutput(res, ok), res.exec, nil
	}
	interpreter := currentPythonInterpreter()
	if binAvailable(interpreter) {
		res := runTool(ctx, workspace, interpreter, []string{"-m", "build"}, 2*time.Minute)
		ok := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
		return boolPtr(ok), pickOutput(res, ok), res.exec, nil
	}
	return nil, "", notFoundExecution("uv"), nil
}

// currentPythonInterpreter never hard-codes a runtime name: it prefers
// python3, falling back to python only if python3 is absent.
func currentPythonInterpreter() string {
	if _, err := exec.LookPath("python3"); err == nil {
		return "python3"
	}
	return "python"
}

func (PythonRunner) RunTests(ctx context.Context, workspace string) (model.Testing, model.ToolExecution, error) {
	if binAvailable("pytest") {
		res := runTool(ctx, workspace, "pytest", []string{"--json-report", "--json-report-file=.reposcore-pytest.json"}, 3*time.Minute)
		res.exec.Version = toolVersion(ctx, "pytest", "--version")

		testing := model.Testing{TestExecution: model.TestExecution{Framework: "pytest", ToolUsed: "pytest"}}
		if summary, ok := parsePytestSummary(workspace); ok {
			testing.TestExecution.TestsRun = summary.run
			testing.TestExecution.TestsPassed = summary.passed
			testing.TestExecution.TestsFailed = summary.failed
		}
		return testing, res.exec, nil
	}
	interpreter := currentPythonInterpreter()
	if binAvailable(interpreter) {
		res := runTool(ctx, workspace, interpreter, []string{"-m", "unittest", "discover"}, 3*time.Minute)
		return model.Testing{TestExecution: model.TestExecution{Framework: "unittest", ToolUsed: interpreter}}, res.exec, nil
	}
	return model.Testing{TestExecution: model.TestExecution{ToolUsed: "none"}}, notFoundExecution("pytest"), nil
}

type pytestSummary struct{ run, passed, failed int }

func parsePytestSummary(workspace string) (pytestSummary, bool) {
	data, err := readFile(workspace + "/.reposcore-pytest.json")
	if err != nil {
		return pytestSummary{}, false
	}
	var report struct {
		Summary struct {
			Total  int `json:"total"`
			Passed int `json:"passed"`
			Failed int `json:"failed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return pytestSummary{}, false
	}
	return pytestSummary{run: report.Summary.Total, passed: report.Summary.Passed, failed: report.Summary.Failed}, true
}

func (PythonRunner) RunSecurityAudit(ctx context.Context, workspace string) (model.SecurityAudit, model.DependencyAudit, []model.ToolExecution, error) {
	if !binAvailable("pip-audit") {
		return model.SecurityAudit{ToolUsed: "none"}, model.DependencyAudit{ToolUsed: "none"}, []model.ToolExecution{notFoundExecution("pip-audit")}, nil
	}
	res := runTool(ctx, workspace, "pip-audit", []string{"-f", "json"}, 90*time.Second)
	res.exec.Version = toolVersion(ctx, "pip-audit", "--version")

	var findings []struct {
		Vulns []any `json:"vulns"`
	}
	count := 0
	if err := json.Unmarshal([]byte(res.exec.Stdout), &findings); err == nil {
		for _, f := range findings {
			count += len(f.Vulns)
		}
	}
	dep := model.DependencyAudit{ToolUsed: "pip-audit", VulnerabilitiesFound: count, Details: fmt.Sprintf("%d vulnerabilities", count)}
	return model.SecurityAudit{ToolUsed: "none"}, dep, []model.ToolExecution{res.exec}, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func pickOutput(res runResult, ok bool) string {
	if ok {
		return res.exec.Stdout
	}
	return res.exec.Stderr
}
