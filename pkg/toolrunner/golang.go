package toolrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/stringutil"
)

// GoRunner analyzes a Go module via golangci-lint, go build, go test, and
// gosec/govulncheck, per the per-language probe table.
type GoRunner struct{}

func (GoRunner) Language() model.Language { return model.LanguageGo }

type golangciIssue struct {
	FromLinter string `json:"FromLinter"`
	Text       string `json:"Text"`
	Severity   string `json:"Severity"`
	Pos        struct {
		Filename string `json:"Filename"`
		Line     int    `json:"Line"`
	} `json:"Pos"`
}

type golangciReport struct {
	Issues []golangciIssue `json:"Issues"`
}

func (GoRunner) RunLinting(ctx context.Context, workspace string) (model.LintResults, model.ToolExecution, error) {
	const bin = "golangci-lint"
	if !binAvailable(bin) {
		return model.LintResults{ToolUsed: "none"}, notFoundExecution(bin), nil
	}

	res := runTool(ctx, workspace, bin, []string{"run", "--out-format", "json", "./..."}, 2*time.Minute)
	res.exec.Version = toolVersion(ctx, bin, "--version")

	var report golangciReport
	if err := json.Unmarshal([]byte(res.exec.Stdout), &report); err != nil {
		// Tolerant degrade: surface raw output, counts only.
		return model.LintResults{
			ToolUsed:    bin,
			Passed:      boolPtr(res.exec.ExitStatus == 0),
			IssuesCount: 0,
		}, res.exec, nil
	}

	issues := make([]model.LintIssue, 0, len(report.Issues))
	for _, i := range report.Issues {
		issues = append(issues, model.LintIssue{
			File:     i.Pos.Filename,
			Line:     i.Pos.Line,
			Severity: strings.ToLower(orDefault(i.Severity, "error")),
			Message:  i.Text,
			Rule:     i.FromLinter,
		})
	}

	return model.LintResults{
		ToolUsed:    bin,
		Passed:      boolPtr(len(issues) == 0),
		IssuesCount: len(issues),
		Issues:      issues,
	}, res.exec, nil
}

func (GoRunner) RunBuild(ctx context.Context, workspace string) (*bool, string, model.ToolExecution, error) {
	const bin = "go"
	if !binAvailable(bin) {
		return nil, "", notFoundExecution(bin), nil
	}

	res := runTool(ctx, workspace, bin, []string{"build", "./..."}, 3*time.Minute)
	res.exec.Version = toolVersion(ctx, bin, "version")

	ok := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
	details := res.exec.Stdout
	if !ok {
		details = res.exec.Stderr
	}
	return boolPtr(ok), details, res.exec, nil
}

type goTestEvent struct {
	Action string `json:"Action"`
	Test   string `json:"Test"`
}

func (GoRunner) RunTests(ctx context.Context, workspace string) (model.Testing, model.ToolExecution, error) {
	const bin = "go"
	if !binAvailable(bin) {
		return model.Testing{TestExecution: model.TestExecution{ToolUsed: "none"}}, notFoundExecution(bin), nil
	}

	res := runTool(ctx, workspace, bin, []string{"test", "./...", "-json", "-cover"}, 3*time.Minute)
	res.exec.Version = toolVersion(ctx, bin, "version")

	var run, pass, fail int
	var coverage *float64
	for _, line := range strings.Split(res.exec.Stdout, "\n") {
		if line == "" {
			continue
		}
		var ev goTestEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Test == "" {
			continue
		}
		switch ev.Action {
		case "pass":
			run++
			pass++
		case "fail":
			run++
			fail++
		}
		if pct, ok := parseCoverage(line); ok {
			coverage = floatPtr(pct)
		}
	}

	return model.Testing{
		TestExecution: model.TestExecution{
			Framework:   "go test",
			TestsRun:    run,
			TestsPassed: pass,
			TestsFailed: fail,
			ToolUsed:    bin,
		},
		CoverageReport: model.CoverageReport{
			Percentage: coverage,
			ToolUsed:   bin,
		},
	}, res.exec, nil
}

func parseCoverage(line string) (float64, bool) {
	const marker = "coverage: "
	idx := strings.Index(line, marker)
	if idx == -1 {
		return 0, false
	}
	rest := line[idx+len(marker):]
	end := strings.Index(rest, "%")
	if end == -1 {
		return 0, false
	}
	var pct float64
	if _, err := fmt.Sscanf(rest[:end], "%f", &pct); err != nil {
		return 0, false
	}
	return pct, true
}

func (GoRunner) RunSecurityAudit(ctx context.Context, workspace string) (model.SecurityAudit, model.DependencyAudit, []model.ToolExecution, error) {
	var execs []model.ToolExecution

	security := model.SecurityAudit{ToolUsed: "none"}
	if binAvailable("gosec") {
		res := runTool(ctx, workspace, "gosec", []string{"-fmt=json", "./..."}, 90*time.Second)
		res.exec.Version = toolVersion(ctx, "gosec", "--version")
		execs = append(execs, res.exec)

		var report struct {
			Issues []struct {
				Severity string `json:"severity"`
			} `json:"Issues"`
		}
		if err := json.Unmarshal([]byte(res.exec.Stdout), &report); err == nil {
			high := 0
			for _, i := range report.Issues {
				if strings.EqualFold(i.Severity, "HIGH") {
					high++
				}
			}
			security = model.SecurityAudit{
				ToolUsed:             "gosec",
				VulnerabilitiesFound: len(report.Issues),
				HighSeverityCount:    high,
				Details:              fmt.Sprintf("%d issues found", len(report.Issues)),
			}
		} else {
			security = model.SecurityAudit{ToolUsed: "gosec", Details: "unparsed output: " + stringutil.Truncate(res.exec.Stdout, 500)}
		}
	} else {
		execs = append(execs, notFoundExecution("gosec"))
	}

	dependency := model.DependencyAudit{ToolUsed: "none"}
	if binAvailable("govulncheck") {
		res := runTool(ctx, workspace, "govulncheck", []string{"-json", "./..."}, 90*time.Second)
		res.exec.Version = toolVersion(ctx, "govulncheck", "-version")
		execs = append(execs, res.exec)

		count := strings.Count(res.exec.Stdout, `"finding"`)
		dependency = model.DependencyAudit{
			ToolUsed:             "govulncheck",
			VulnerabilitiesFound: count,
			Details:              fmt.Sprintf("%d findings reported", count),
		}
	} else {
		execs = append(execs, notFoundExecution("govulncheck"))
	}

	return security, dependency, execs, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
