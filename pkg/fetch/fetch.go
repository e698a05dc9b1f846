// Package fetch resolves a repository reference to a concrete commit and
// clones it into a workspace (§4.2).
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2"

	"github.com/reposcore/reposcore/pkg/constants"
	"github.com/reposcore/reposcore/pkg/gitutil"
	"github.com/reposcore/reposcore/pkg/httputil"
	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/ratelimit"
	"github.com/reposcore/reposcore/pkg/repoutil"
	"github.com/reposcore/reposcore/pkg/sliceutil"
)

var log = logger.New("fetch")

// unauthClient hits the public GitHub REST API without credentials, for
// hosts or rate-limited sessions where the gh CLI can't authenticate.
var unauthClient = httputil.NewClient(&httputil.ClientOptions{UserAgent: "reposcore-cli"})

// FailureKind classifies why a fetch attempt failed, per §4.2.
type FailureKind string

const (
	FailureInvalidURL   FailureKind = "invalid_url"
	FailureAuthRequired FailureKind = "auth_required"
	FailureNotFound     FailureKind = "not_found"
	FailureTimeout      FailureKind = "timeout"
	FailureTooLarge     FailureKind = "too_large"
	FailureGeneric      FailureKind = "fetch_failure"
)

// Error reports a classified fetch failure.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func fail(kind FailureKind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Options configures one fetch attempt.
type Options struct {
	URL           string
	Revision      string
	SizeCapMB     float64
	WorkspacePath string
}

// Fetch resolves url/revision to a concrete commit, clones it under
// workspace, and returns the populated repository descriptor. It never
// returns a generic error unwrapped from *Error.
func Fetch(ctx context.Context, opts Options) (model.Repository, error) {
	owner, repo, err := parseOwnerRepo(opts.URL)
	if err != nil {
		return model.Repository{}, fail(FailureInvalidURL, "%w", err)
	}

	sizeCap := opts.SizeCapMB
	if sizeCap <= 0 {
		sizeCap = constants.DefaultRepoSizeCapMB
	}

	sha, ref, err := resolveRevision(ctx, owner, repo, opts.Revision)
	if err != nil {
		return model.Repository{}, err
	}

	sizeMB, err := estimateSizeMB(ctx, owner, repo)
	if err != nil {
		log.Printf("size pre-check failed for %s/%s, proceeding without it: %v", owner, repo, err)
	} else if sizeMB > sizeCap {
		return model.Repository{}, fail(FailureTooLarge, "repository is %.1fMB, exceeds cap of %.1fMB", sizeMB, sizeCap)
	}

	if err := cloneShallow(ctx, opts.URL, ref, opts.WorkspacePath); err != nil {
		return model.Repository{}, err
	}

	return model.Repository{
		SourceURL: opts.URL,
		CommitSHA: sha,
		ClonedAt:  time.Now().UTC(),
		SizeMB:    sizeMB,
	}, nil
}

func parseOwnerRepo(url string) (owner, repo string, err error) {
	if strings.Contains(url, "github.com") {
		return repoutil.ParseGitHubRepoURL(url)
	}
	return repoutil.SplitRepoSlug(strings.TrimSuffix(url, ".git"))
}

// resolveRevision returns the concrete commit SHA and the ref to pass to
// git clone (the revision itself when given, otherwise the resolved SHA of
// the default branch's head).
func resolveRevision(ctx context.Context, owner, repo, revision string) (sha, ref string, err error) {
	if revision != "" && len(revision) == 40 && gitutil.IsHexString(revision) {
		return revision, revision, nil
	}

	ref = revision
	var apiPath string
	if ref == "" {
		apiPath = fmt.Sprintf("/repos/%s/%s/commits/HEAD", owner, repo)
	} else {
		apiPath = fmt.Sprintf("/repos/%s/%s/commits/%s", owner, repo, ref)
	}

	var stdout string
	rlErr := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationGitHubAPI, func() error {
		out, stderr, execErr := gh.Exec("api", apiPath, "--jq", ".sha")
		if execErr != nil {
			stderrStr := stderr.String()
			if gitutil.IsAuthError(stderrStr) {
				log.Printf("gh CLI authentication failed resolving %s/%s@%s, falling back to unauthenticated API", owner, repo, ref)
				sha, fallbackErr := resolveRevisionUnauthenticated(ctx, owner, repo, ref)
				if fallbackErr != nil {
					return fallbackErr
				}
				stdout = sha
				return nil
			}
			if sliceutil.ContainsAny(strings.ToLower(stderrStr), "not found", "no such repository") {
				return fail(FailureNotFound, "revision %q not found for %s/%s", revisionOrDefault(ref), owner, repo)
			}
			return fail(FailureGeneric, "resolving revision: %s: %w", strings.TrimSpace(stderrStr), execErr)
		}
		stdout = strings.TrimSpace(out.String())
		return nil
	})
	if rlErr != nil {
		var fe *Error
		if errors.As(rlErr, &fe) {
			return "", "", rlErr
		}
		if ctx.Err() != nil {
			return "", "", fail(FailureTimeout, "resolving revision: %w", ctx.Err())
		}
		return "", "", fail(FailureGeneric, "resolving revision: %w", rlErr)
	}

	if stdout == "" || len(stdout) != 40 || !gitutil.IsHexString(stdout) {
		return "", "", fail(FailureGeneric, "invalid SHA resolved for %s/%s@%s: %q", owner, repo, revisionOrDefault(ref), stdout)
	}
	if ref == "" {
		ref = stdout
	}
	return stdout, ref, nil
}

func revisionOrDefault(ref string) string {
	if ref == "" {
		return "HEAD"
	}
	return ref
}

func resolveRevisionUnauthenticated(ctx context.Context, owner, repo, ref string) (string, error) {
	path := "HEAD"
	if ref != "" {
		path = ref
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits/%s", owner, repo, path)
	req, err := unauthClient.NewRequest(http.MethodGet, url)
	if err != nil {
		return "", fail(FailureGeneric, "building unauthenticated revision request: %w", err)
	}
	req = req.WithContext(ctx)

	resp, err := unauthClient.Do(req)
	if err != nil {
		return "", fail(FailureNotFound, "unauthenticated revision lookup for %s/%s@%s: %w", owner, repo, path, err)
	}
	defer resp.Body.Close()

	body, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return "", fail(FailureGeneric, "reading unauthenticated revision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fail(FailureNotFound, "%w", httputil.FormatHTTPError(resp.StatusCode, body, fmt.Sprintf("revision lookup for %s/%s@%s", owner, repo, path)))
	}

	var parsed struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fail(FailureGeneric, "parsing unauthenticated revision response: %w", err)
	}
	if parsed.Message != "" {
		return "", fail(FailureNotFound, "%s", parsed.Message)
	}
	return parsed.SHA, nil
}

// estimateSizeMB pre-checks repository size before cloning, so a too_large
// failure costs one API call rather than a full clone.
func estimateSizeMB(ctx context.Context, owner, repo string) (float64, error) {
	var sizeKB int
	err := ratelimit.ExecuteWithRetry(ctx, ratelimit.OperationGitHubAPI, func() error {
		out, _, execErr := gh.Exec("api", fmt.Sprintf("/repos/%s/%s", owner, repo), "--jq", ".size")
		if execErr != nil {
			return execErr
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(out.String()))
		if convErr != nil {
			return convErr
		}
		sizeKB = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return float64(sizeKB) / 1024.0, nil
}

// cloneShallow performs a depth-1 clone of ref into workspacePath. When ref
// looks like a branch name the shallow clone targets it directly; when it is
// a raw SHA, git requires clone-then-checkout instead.
func cloneShallow(ctx context.Context, url, ref, workspacePath string) error {
	args := []string{"clone", "--depth", "1", "--branch", ref, url, workspacePath}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	outStr := string(out)
	if gitutil.IsAuthError(outStr) {
		return fail(FailureAuthRequired, "clone of %s: %s", url, strings.TrimSpace(outStr))
	}
	if ctx.Err() != nil {
		return fail(FailureTimeout, "clone of %s: %w", url, ctx.Err())
	}

	// ref is not a branch/tag (e.g. a raw SHA); fall back to clone-then-checkout.
	log.Printf("shallow branch clone failed for %s@%s, retrying with clone-then-checkout: %s", url, ref, strings.TrimSpace(outStr))
	cloneCmd := exec.CommandContext(ctx, "git", "clone", url, workspacePath)
	if out, err := cloneCmd.CombinedOutput(); err != nil {
		outStr := string(out)
		if gitutil.IsAuthError(outStr) {
			return fail(FailureAuthRequired, "clone of %s: %s", url, strings.TrimSpace(outStr))
		}
		if sliceutil.ContainsIgnoreCase(outStr, "not found") || sliceutil.ContainsIgnoreCase(outStr, "repository not found") {
			return fail(FailureNotFound, "clone of %s: %s", url, strings.TrimSpace(outStr))
		}
		return fail(FailureGeneric, "clone of %s: %s: %w", url, strings.TrimSpace(outStr), err)
	}

	checkoutCmd := exec.CommandContext(ctx, "git", "-C", workspacePath, "checkout", ref)
	if out, err := checkoutCmd.CombinedOutput(); err != nil {
		return fail(FailureNotFound, "checkout of %s@%s: %s: %w", url, ref, strings.TrimSpace(string(out)), err)
	}
	return nil
}
