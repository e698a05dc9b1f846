// Package toolrunner shells out to per-language external analysis tools and
// normalizes their output into the shared metrics record (§4.4).
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/stringutil"
)

var log = logger.New("toolrunner")

// Runner is implemented once per supported language. Every operation is
// optional: a runner that has nothing to contribute for an operation
// returns a zero-value result and a nil error — absence is not failure.
type Runner interface {
	Language() model.Language
	RunLinting(ctx context.Context, workspace string) (model.LintResults, model.ToolExecution, error)
	RunBuild(ctx context.Context, workspace string) (buildOK *bool, details string, exec model.ToolExecution, err error)
	RunTests(ctx context.Context, workspace string) (model.Testing, model.ToolExecution, error)
	RunSecurityAudit(ctx context.Context, workspace string) (model.SecurityAudit, model.DependencyAudit, []model.ToolExecution, error)
}

// versionCache remembers a discovered tool's --version output for the
// lifetime of the process, keyed by tool name (§3.9). It is read-through:
// absence is always re-probed, never assumed from a prior miss.
type versionCache struct {
	mu  sync.Mutex
	m   map[string]string
}

var versions = &versionCache{m: make(map[string]string)}

func (c *versionCache) get(tool string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[tool]
	return v, ok
}

func (c *versionCache) set(tool, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[tool] = version
}

// toolVersion shells out to `<bin> <versionArgs...>`, caching the result.
func toolVersion(ctx context.Context, bin string, versionArgs ...string) string {
	if v, ok := versions.get(bin); ok {
		return v
	}
	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(vctx, bin, versionArgs...).Output()
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	version := ""
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	versions.set(bin, version)
	return version
}

// lookPath is a thin, mockable wrapper around exec.LookPath — JavaScript
// tool discovery in particular must use this cross-platform lookup rather
// than a `which`-style shell call.
var lookPath = exec.LookPath

func binAvailable(bin string) bool {
	_, err := lookPath(bin)
	return err == nil
}

// runResult is the raw outcome of shelling out to one tool.
type runResult struct {
	exec       model.ToolExecution
	timedOut   bool
}

// runTool executes bin with args under workspace, bounded by timeout.
// It always returns a ToolExecution — absence of the binary is the
// caller's concern (checked via binAvailable before calling this).
func runTool(ctx context.Context, workspace, bin string, args []string, timeout time.Duration) runResult {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, bin, args...)
	cmd.Dir = workspace
	setupProcessGroup(cmd)
	// Without this, ctx cancellation only kills the direct child; a tool
	// that forks (e.g. a linter shelling out to a formatter) would leave
	// its descendants running past the deadline.
	cmd.Cancel = func() error { return killProcessGroup(cmd) }

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	state := model.ToolCompleted
	exitStatus := 0
	timedOut := false

	if cctx.Err() == context.DeadlineExceeded {
		state = model.ToolTimedOut
		timedOut = true
		log.Printf("%s timed out after %s in %s", bin, timeout, workspace)
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitStatus = exitErr.ExitCode()
		} else {
			state = model.ToolFailed
		}
	}

	return runResult{
		exec: model.ToolExecution{
			ToolName:    bin,
			CommandLine: bin + " " + strings.Join(args, " "),
			ExitStatus:  exitStatus,
			Stdout:      stdout.String(),
			// Tool stderr routinely echoes the invoking environment (failed
			// build logs, linter crash dumps); sanitize before it's persisted
			// into evidence or submission.json.
			Stderr:  stringutil.SanitizeErrorMessage(stderr.String()),
			Elapsed: elapsed,
			State:   state,
		},
		timedOut: timedOut,
	}
}

// notFoundExecution records a tool_used = "none" result per §4.4's
// not-an-error contract for an absent binary.
func notFoundExecution(name string) model.ToolExecution {
	return model.ToolExecution{
		ToolName: name,
		State:    model.ToolNotFound,
		Stdout:   "tool not found on PATH",
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

// readFile reads a file relative to a workspace-rooted absolute path.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}
