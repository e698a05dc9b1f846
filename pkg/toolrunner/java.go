package toolrunner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/reposcore/reposcore/pkg/model"
)

// JavaRunner probes Maven first, falling back to the Gradle wrapper, since
// either build system may be present without the other.
type JavaRunner struct{}

func (JavaRunner) Language() model.Language { return model.LanguageJava }

func usesMaven(workspace string) bool {
	_, err := os.Stat(filepath.Join(workspace, "pom.xml"))
	return err == nil
}

func gradlewPath(workspace string) (string, bool) {
	p := filepath.Join(workspace, "gradlew")
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, true
	}
	return "", false
}

func (JavaRunner) RunLinting(ctx context.Context, workspace string) (model.LintResults, model.ToolExecution, error) {
	if usesMaven(workspace) && binAvailable("mvn") {
		res := runTool(ctx, workspace, "mvn", []string{"-q", "checkstyle:check"}, 2*time.Minute)
		res.exec.Version = toolVersion(ctx, "mvn", "--version")
		return model.LintResults{ToolUsed: "checkstyle", Passed: boolPtr(res.exec.ExitStatus == 0)}, res.exec, nil
	}
	if gw, ok := gradlewPath(workspace); ok {
		res := runTool(ctx, workspace, gw, []string{"check"}, 2*time.Minute)
		return model.LintResults{ToolUsed: "gradle check", Passed: boolPtr(res.exec.ExitStatus == 0)}, res.exec, nil
	}
	return model.LintResults{ToolUsed: "none"}, notFoundExecution("mvn"), nil
}

func (JavaRunner) RunBuild(ctx context.Context, workspace string) (*bool, string, model.ToolExecution, error) {
	if usesMaven(workspace) && binAvailable("mvn") {
		res := runTool(ctx, workspace, "mvn", []string{"-q", "compile"}, 3*time.Minute)
		res.exec.Version = toolVersion(ctx, "mvn", "--version")
		ok := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
		return boolPtr(ok), pickOutput(res, ok), res.exec, nil
	}
	if gw, ok := gradlewPath(workspace); ok {
		res := runTool(ctx, workspace, gw, []string{"build", "-x", "test"}, 3*time.Minute)
		buildOK := res.exec.State == model.ToolCompleted && res.exec.ExitStatus == 0
		return boolPtr(buildOK), pickOutput(res, buildOK), res.exec, nil
	}
	return nil, "", notFoundExecution("mvn"), nil
}

func (JavaRunner) RunTests(ctx context.Context, workspace string) (model.Testing, model.ToolExecution, error) {
	if usesMaven(workspace) && binAvailable("mvn") {
		res := runTool(ctx, workspace, "mvn", []string{"-q", "test"}, 4*time.Minute)
		res.exec.Version = toolVersion(ctx, "mvn", "--version")
		return model.Testing{TestExecution: model.TestExecution{Framework: "maven-surefire", ToolUsed: "mvn"}}, res.exec, nil
	}
	if gw, ok := gradlewPath(workspace); ok {
		res := runTool(ctx, workspace, gw, []string{"test"}, 4*time.Minute)
		return model.Testing{TestExecution: model.TestExecution{Framework: "gradle test", ToolUsed: "gradle"}}, res.exec, nil
	}
	return model.Testing{TestExecution: model.TestExecution{ToolUsed: "none"}}, notFoundExecution("mvn"), nil
}

func (JavaRunner) RunSecurityAudit(ctx context.Context, workspace string) (model.SecurityAudit, model.DependencyAudit, []model.ToolExecution, error) {
	if usesMaven(workspace) && binAvailable("mvn") {
		res := runTool(ctx, workspace, "mvn", []string{"-q", "dependency-check:check"}, 3*time.Minute)
		dep := model.DependencyAudit{ToolUsed: "dependency-check", Details: "see tool output"}
		return model.SecurityAudit{ToolUsed: "none"}, dep, []model.ToolExecution{res.exec}, nil
	}
	return model.SecurityAudit{ToolUsed: "none"}, model.DependencyAudit{ToolUsed: "none"}, []model.ToolExecution{notFoundExecution("dependency-check")}, nil
}
