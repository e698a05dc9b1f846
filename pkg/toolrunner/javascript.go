package toolrunner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/reposcore/reposcore/pkg/model"
)

// JavaScriptRunner covers both JavaScript and TypeScript projects; build
// and test availability is probed from package.json scripts rather than
// assumed, since either may be absent or delegated to a different tool.
type JavaScriptRunner struct {
	Lang model.Language
}

func (r JavaScriptRunner) Language() model.Language { return r.Lang }

type packageJSON struct {
	Scripts map[string]string `json:"scripts"`
}

func readPackageJSON(workspace string) (packageJSON, bool) {
	data, err := os.ReadFile(filepath.Join(workspace, "package.json"))
	if err != nil {
		return packageJSON{}, false
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return packageJSON{}, false
	}
	return pkg, true
}

type eslintFileResult struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
	} `json:"messages"`
}

func (JavaScriptRunner) RunLinting(ctx context.Context, workspace string) (model.LintResults, model.ToolExecution, error) {
	if !binAvailable("eslint") && !binAvailable("npx") {
		return model.LintResults{ToolUsed: "none"}, notFoundExecution("eslint"), nil
	}
	bin, args := "eslint", []string{"-f", "json", "."}
	if !binAvailable("eslint") {
		bin, args = "npx", []string{"eslint", "-f", "json", "."}
	}
	res := runTool(ctx, workspace, bin, args, 90*time.Second)
	res.exec.Version = toolVersion(ctx, "eslint", "--version")

	var results []eslintFileResult
	if err := json.Unmarshal([]byte(res.exec.Stdout), &results); err != nil {
		return model.LintResults{ToolUsed: "eslint", Passed: boolPtr(res.exec.ExitStatus == 0)}, res.exec, nil
	}
	var issues []model.LintIssue
	for _, file := range results {
		for _, m := range file.Messages {
			severity := "warning"
			if m.Severity >= 2 {
				severity = "error"
			}
			issues = append(issues, model.LintIssue{File: file.FilePath, Line: m.Line, Severity: severity, Message: m.Message, Rule: m.RuleID})
		}
	}
	return model.LintResults{ToolUsed: "eslint", Passed: boolPtr(len(issues) == 0), IssuesCount: len(issues), Issues: issues}, res.exec, nil
}

func (JavaScriptRunner) RunBuild(ctx context.Context, workspace string) (*bool, string, model.ToolExecution, error) {
	pkg, ok := readPackageJSON(workspace)
	if !ok || pkg.Scripts["build"] == "" || !binAvailable("npm") {
		return nil, "", notFoundExecution("npm"), nil
	}
	res := runTool(ctx, workspace, "npm", []string{"run", "build"}, 3*time.Minute)
	res.exec.Version = toolVersion(ctx, "npm", "--version")
	buildOK := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
	return boolPtr(buildOK), pickOutput(res, buildOK), res.exec, nil
}

func (JavaScriptRunner) RunTests(ctx context.Context, workspace string) (model.Testing, model.ToolExecution, error) {
	pkg, hasPkg := readPackageJSON(workspace)
	if hasPkg && pkg.Scripts["test"] != "" && binAvailable("npm") {
		res := runTool(ctx, workspace, "npm", []string{"test", "--", "--json"}, 3*time.Minute)
		res.exec.Version = toolVersion(ctx, "npm", "--version")
		return model.Testing{TestExecution: model.TestExecution{Framework: "npm test", ToolUsed: "npm"}}, res.exec, nil
	}
	if binAvailable("jest") {
		res := runTool(ctx, workspace, "jest", []string{"--json"}, 3*time.Minute)
		res.exec.Version = toolVersion(ctx, "jest", "--version")

		var report struct {
			NumTotalTests  int `json:"numTotalTests"`
			NumPassedTests int `json:"numPassedTests"`
			NumFailedTests int `json:"numFailedTests"`
		}
		testing := model.Testing{TestExecution: model.TestExecution{Framework: "jest", ToolUsed: "jest"}}
		if err := json.Unmarshal([]byte(res.exec.Stdout), &report); err == nil {
			testing.TestExecution.TestsRun = report.NumTotalTests
			testing.TestExecution.TestsPassed = report.NumPassedTests
			testing.TestExecution.TestsFailed = report.NumFailedTests
		}
		return testing, res.exec, nil
	}
	return model.Testing{TestExecution: model.TestExecution{ToolUsed: "none"}}, notFoundExecution("jest"), nil
}

func (JavaScriptRunner) RunSecurityAudit(ctx context.Context, workspace string) (model.SecurityAudit, model.DependencyAudit, []model.ToolExecution, error) {
	if !binAvailable("npm") {
		return model.SecurityAudit{ToolUsed: "none"}, model.DependencyAudit{ToolUsed: "none"}, []model.ToolExecution{notFoundExecution("npm")}, nil
	}
	res := runTool(ctx, workspace, "npm", []string{"audit", "--json"}, 90*time.Second)
	res.exec.Version = toolVersion(ctx, "npm", "--version")

	var report struct {
		Metadata struct {
			Vulnerabilities struct {
				Total int `json:"total"`
			} `json:"vulnerabilities"`
		} `json:"metadata"`
	}
	dep := model.DependencyAudit{ToolUsed: "npm audit"}
	if err := json.Unmarshal([]byte(res.exec.Stdout), &report); err == nil {
		dep.VulnerabilitiesFound = report.Metadata.Vulnerabilities.Total
	}
	return model.SecurityAudit{ToolUsed: "none"}, dep, []model.ToolExecution{res.exec}, nil
}
