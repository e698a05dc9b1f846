// Package pipeline composes the workspace, fetcher, language detector,
// tool dispatcher, checklist evaluator, and scoring mapper into the
// single `run()` entrypoint (§4.5, §6.1).
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/reposcore/reposcore/pkg/checklist"
	"github.com/reposcore/reposcore/pkg/constants"
	"github.com/reposcore/reposcore/pkg/evidence"
	"github.com/reposcore/reposcore/pkg/fetch"
	"github.com/reposcore/reposcore/pkg/langdetect"
	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/report"
	"github.com/reposcore/reposcore/pkg/rubric"
	"github.com/reposcore/reposcore/pkg/scoring"
	"github.com/reposcore/reposcore/pkg/sliceutil"
	"github.com/reposcore/reposcore/pkg/stringutil"
	"github.com/reposcore/reposcore/pkg/toolrunner"
	"github.com/reposcore/reposcore/pkg/workspace"
)

var log = logger.New("pipeline")

// Format controls which human-facing artifacts Run writes (§6.1).
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatBoth     Format = "both"
)

// ExitCode mirrors §7's error taxonomy, for the CLI collaborator to return.
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitInvalidInput ExitCode = 2
	ExitFetchFailure ExitCode = 3
	ExitInternal     ExitCode = 4
	ExitTimeout      ExitCode = 5
)

// Options configures one pipeline invocation. Nothing here is read from
// process-wide state — every knob flows through this struct (§5, §9).
type Options struct {
	RepoURL         string
	Revision        string
	OutputDir       string
	Format          Format
	TimeoutSeconds  int
	EnableChecklist bool
	ChecklistConfig string
	Verbose         bool
}

// Result is what Run returns to its caller alongside the exit code.
type Result struct {
	Record    model.Record
	Scorecard *model.Scorecard
}

// Run executes one full scorecard pass: fetch, detect, dispatch tools,
// merge metrics, optionally evaluate the checklist, and persist outputs.
// Workspace release always runs, on every exit path (§5).
func Run(ctx context.Context, opts Options) (Result, ExitCode, error) {
	if opts.RepoURL == "" {
		return Result{}, ExitInvalidInput, errors.New("repo_url is required")
	}
	if opts.Verbose && os.Getenv("DEBUG") == "" {
		os.Setenv("DEBUG", constants.CLIExtensionPrefix+":*")
	}
	timeoutSeconds := opts.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = constants.DefaultTimeoutSeconds
	}
	deadline := time.Duration(timeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	record := model.Record{}
	var execErrors []model.ExecutionError

	ws, err := workspace.Acquire(slugOf(opts.RepoURL))
	if err != nil {
		return Result{}, ExitInternal, fmt.Errorf("acquiring workspace: %w", err)
	}
	defer ws.Release()

	repo, fetchErr := fetch.Fetch(runCtx, fetch.Options{
		URL:           opts.RepoURL,
		Revision:      opts.Revision,
		SizeCapMB:     constants.DefaultRepoSizeCapMB,
		WorkspacePath: ws.Path,
	})
	if fetchErr != nil {
		var fe *fetch.Error
		if errors.As(fetchErr, &fe) && fe.Kind == fetch.FailureTimeout {
			execErrors = append(execErrors, model.ExecutionError{Tool: "git", Phase: "fetch", Message: fetchErr.Error()})
			record.Execution.Errors = execErrors
			writeMetricsOnly(opts, record, log)
			return Result{Record: record}, ExitTimeout, fetchErr
		}
		return Result{}, ExitFetchFailure, fetchErr
	}

	langResult, err := langdetect.Detect(ws.Path)
	if err != nil {
		log.Printf("language detection failed, proceeding with unknown: %v", err)
		langResult = langdetect.Result{Primary: model.LanguageUnknown}
	}
	repo.Language = langResult.Primary
	record.Repository = repo

	toolsUsed, errs := dispatchTools(runCtx, ws.Path, langResult.Primary, &record)
	execErrors = append(execErrors, errs...)

	record.Execution = model.Execution{
		ToolsUsed:       toolsUsed,
		Errors:          execErrors,
		DurationSeconds: time.Since(start).Seconds(),
		Timestamp:       time.Now().UTC(),
	}

	if err := rubric.ValidateMetricsRecord(record); err != nil {
		return Result{Record: record}, ExitInternal, fmt.Errorf("schema_mismatch: %w", err)
	}

	result := Result{Record: record}

	if opts.EnableChecklist {
		sc, err := runChecklist(opts, record, repo, toolsUsed, time.Since(start).Seconds())
		if err != nil {
			return result, ExitInternal, err
		}
		result.Scorecard = &sc
	}

	if err := persist(opts, result); err != nil {
		return result, ExitInternal, fmt.Errorf("persisting outputs: %w", err)
	}

	if runCtx.Err() != nil {
		return result, ExitTimeout, runCtx.Err()
	}
	return result, ExitSuccess, nil
}

// dispatchTools runs the runner for lang (if any) with bounded fan-out
// (§5: up to runtime.NumCPU() concurrent tool invocations) and merges
// results into record. Soft failures never abort the pipeline.
func dispatchTools(ctx context.Context, wsPath string, lang model.Language, record *model.Record) ([]string, []model.ExecutionError) {
	record.Metrics.Documentation = toolrunner.AnalyzeDocumentation(wsPath)

	runner := toolrunner.Select(lang)
	if runner == nil {
		log.Printf("no tool runner for language %s; documentation metrics only", lang)
		return nil, nil
	}

	sem := semaphore.NewWeighted(int64(max(1, runtime.NumCPU())))
	var (
		toolsUsed  []string
		execErrors []model.ExecutionError
		resultsMu  sync.Mutex
	)

	type task func()
	tasks := []task{
		func() {
			lint, exec, err := runner.RunLinting(ctx, wsPath)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			record.Metrics.CodeQuality.LintResults = lint
			recordExec(&toolsUsed, &execErrors, "lint", exec, err)
		},
		func() {
			buildOK, details, exec, err := runner.RunBuild(ctx, wsPath)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			record.Metrics.CodeQuality.BuildSuccess = buildOK
			record.Metrics.CodeQuality.BuildDetails = details
			recordExec(&toolsUsed, &execErrors, "build", exec, err)
		},
		func() {
			testing, exec, err := runner.RunTests(ctx, wsPath)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			record.Metrics.Testing = testing
			recordExec(&toolsUsed, &execErrors, "test", exec, err)
		},
		func() {
			security, dependency, execs, err := runner.RunSecurityAudit(ctx, wsPath)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			record.Metrics.CodeQuality.SecurityAudit = security
			record.Metrics.CodeQuality.DependencyAudit = dependency
			for _, e := range execs {
				recordExec(&toolsUsed, &execErrors, "security_audit", e, err)
			}
		},
	}

	// conc.WaitGroup recovers a panicking tool-output parser and re-raises
	// it from Wait, so one runner's bug can't silently corrupt the others'
	// already-merged fields.
	var wg conc.WaitGroup
	for _, t := range tasks {
		t := t
		if err := sem.Acquire(ctx, 1); err != nil {
			// Global deadline fired before this task could start.
			execErrors = append(execErrors, model.ExecutionError{Tool: "dispatcher", Phase: "dispatch", Message: err.Error()})
			continue
		}
		wg.Go(func() {
			defer sem.Release(1)
			t()
		})
	}
	wg.Wait()

	return toolsUsed, execErrors
}

func recordExec(toolsUsed *[]string, execErrors *[]model.ExecutionError, phase string, exec model.ToolExecution, err error) {
	if exec.ToolName != "" && exec.State != model.ToolNotFound && !sliceutil.Contains(*toolsUsed, exec.ToolName) {
		*toolsUsed = append(*toolsUsed, exec.ToolName)
	}
	if err != nil {
		*execErrors = append(*execErrors, model.ExecutionError{Tool: exec.ToolName, Phase: phase, Message: err.Error()})
		return
	}
	if exec.State == model.ToolTimedOut {
		*execErrors = append(*execErrors, model.ExecutionError{Tool: exec.ToolName, Phase: phase, Message: "tool timed out"})
	} else if exec.State == model.ToolFailed {
		*execErrors = append(*execErrors, model.ExecutionError{Tool: exec.ToolName, Phase: phase, Message: "tool invocation failed: " + truncateMsg(exec.Stderr)})
	}
}

func truncateMsg(s string) string {
	return stringutil.Truncate(s, 300)
}

func runChecklist(opts Options, record model.Record, repo model.Repository, toolsUsed []string, duration float64) (model.Scorecard, error) {
	configPath := opts.ChecklistConfig
	if configPath == "" {
		return model.Scorecard{}, errors.New("checklist enabled but no checklist-config path provided")
	}
	r, err := rubric.Load(configPath)
	if err != nil {
		return model.Scorecard{}, fmt.Errorf("rubric_parse_error: %w", err)
	}

	tracker := evidence.NewTracker()
	items, err := checklist.Evaluate(r, &record, tracker)
	if err != nil {
		return model.Scorecard{}, err
	}

	sc := scoring.Build(scoring.BuildInput{
		Repository:      repo,
		ScoredItems:     items,
		EvidenceSummary: tracker.Summary(),
		ToolsUsed:       toolsUsed,
		DurationSeconds: duration,
	})

	if opts.OutputDir != "" {
		if err := tracker.Persist(filepath.Join(opts.OutputDir, "evidence")); err != nil {
			log.Printf("failed to persist evidence: %v", err)
		}
	}

	return sc, nil
}

func persist(opts Options, result Result) error {
	if opts.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}

	if err := writeSortedJSON(filepath.Join(opts.OutputDir, "submission.json"), result.Record); err != nil {
		return err
	}

	if result.Scorecard == nil {
		return nil
	}

	format := opts.Format
	if format == "" {
		format = FormatBoth
	}
	if format == FormatJSON || format == FormatBoth {
		if err := writeSortedJSON(filepath.Join(opts.OutputDir, "score_input.json"), *result.Scorecard); err != nil {
			return err
		}
	}
	if format == FormatMarkdown || format == FormatBoth {
		md := report.Render(*result.Scorecard)
		if err := os.WriteFile(filepath.Join(opts.OutputDir, "evaluation_report.md"), []byte(md), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeMetricsOnly(opts Options, record model.Record, l *logger.Logger) {
	if opts.OutputDir == "" {
		return
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		l.Printf("failed to create output dir for partial outputs: %v", err)
		return
	}
	if err := writeSortedJSON(filepath.Join(opts.OutputDir, "submission.json"), record); err != nil {
		l.Printf("failed to write partial submission.json: %v", err)
	}
}

// writeSortedJSON marshals v with UNIX newlines and a trailing newline,
// per §6.2's bit-level contract. Struct fields encode in declaration
// order, so v is first round-tripped through generic maps: every object
// level of the output then has its keys in sorted order.
func writeSortedJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func slugOf(url string) string {
	base := filepath.Base(url)
	return base
}
