// Package git drives the shared checkout of the analysed repository with
// the git CLI.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"pluginrefs/internal/errors"
)

const (
	// DefaultQueryTimeout bounds a single git command.
	DefaultQueryTimeout = 120 * time.Second

	// cloneTimeoutFactor stretches the timeout for clone and fetch.
	cloneTimeoutFactor = 10
)

// HeadPoint is the checkout point of the current branch tip.
const HeadPoint = "head"

// Options configures a Checkout.
type Options struct {
	Branch  string
	Timeout time.Duration
	// Keep lists repo-relative untracked files that survive the clean
	// after each checkout, such as plugin declarations or a SCIP index.
	Keep []string
}

// Checkout is a working tree the sweep moves between snapshots. It is a
// single-writer resource; callers serialize access with internal/lock.
type Checkout struct {
	dir          string
	url          string
	branch       string
	keep         []string
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Open clones repoURL into localDir when no checkout exists there, and
// fetches otherwise. An empty repoURL uses localDir as is.
func Open(ctx context.Context, repoURL, localDir string, opts Options, logger *slog.Logger) (*Checkout, error) {
	c := &Checkout{
		dir:          localDir,
		url:          repoURL,
		branch:       opts.Branch,
		keep:         opts.Keep,
		queryTimeout: opts.Timeout,
		logger:       logger,
	}
	if c.queryTimeout <= 0 {
		c.queryTimeout = DefaultQueryTimeout
	}
	if c.branch == "" {
		c.branch = "main"
	}

	if !IsGitRepository(localDir) {
		if repoURL == "" {
			return nil, errors.New(errors.CheckoutFailure, fmt.Sprintf("%s is not a git checkout and no repository URL is configured", localDir), nil)
		}
		if err := os.MkdirAll(filepath.Dir(localDir), 0755); err != nil {
			return nil, errors.New(errors.CheckoutFailure, "Failed to create checkout parent directory", err)
		}
		logger.Info("Cloning repository", "url", repoURL, "dir", localDir, "branch", c.branch)
		if _, err := c.run(ctx, c.queryTimeout*cloneTimeoutFactor, filepath.Dir(localDir), "clone", "--branch", c.branch, repoURL, localDir); err != nil {
			return nil, err
		}
		return c, nil
	}

	if repoURL != "" {
		logger.Info("Fetching repository", "dir", localDir)
		if _, err := c.git(ctx, c.queryTimeout*cloneTimeoutFactor, "fetch", "--tags", "origin"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Dir returns the checkout directory.
func (c *Checkout) Dir() string {
	return c.dir
}

// IsHead reports whether a checkout point denotes the branch tip.
func IsHead(point string) bool {
	return point == "" || strings.EqualFold(point, HeadPoint)
}

// CheckoutToPoint moves the working tree to a snapshot and returns the
// commit hash. Dates select the last commit on the branch before that
// time, following only first parents so merged branches do not leak in;
// anything else is treated as a revision.
func (c *Checkout) CheckoutToPoint(ctx context.Context, point string) (string, error) {
	var rev string
	switch {
	case IsHead(point):
		rev = c.branchRef(ctx)
	default:
		if when, ok := parseDate(point); ok {
			hash, err := c.git(ctx, c.queryTimeout, "rev-list", "--first-parent", "-n", "1", "--before="+when.Format(time.RFC3339), c.branchRef(ctx))
			if err != nil {
				return "", err
			}
			if hash == "" {
				return "", errors.New(errors.CheckoutFailure, fmt.Sprintf("no commit on %s before %s", c.branch, point), nil)
			}
			rev = hash
		} else {
			rev = point
		}
	}

	hash, err := c.git(ctx, c.queryTimeout, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", err
	}
	if _, err := c.git(ctx, c.queryTimeout, "checkout", "--force", "--detach", hash); err != nil {
		return "", err
	}
	if _, err := c.git(ctx, c.queryTimeout, c.cleanArgs()...); err != nil {
		return "", err
	}
	c.logger.Debug("Checked out snapshot", "point", point, "commit", hash)
	return hash, nil
}

func (c *Checkout) cleanArgs() []string {
	args := []string{"clean", "-fdq"}
	for _, k := range c.keep {
		if k = strings.TrimPrefix(path.Clean(filepath.ToSlash(k)), "/"); k != "." && k != "" {
			args = append(args, "-e", "/"+k)
		}
	}
	return args
}

// branchRef prefers the remote-tracking branch so that head snapshots see
// fetched commits.
func (c *Checkout) branchRef(ctx context.Context) string {
	remote := "origin/" + c.branch
	if _, err := c.git(ctx, c.queryTimeout, "rev-parse", "--verify", "--quiet", remote); err == nil {
		return remote
	}
	return c.branch
}

// CommitHash returns the checked-out commit.
func (c *Checkout) CommitHash(ctx context.Context) (string, error) {
	return c.git(ctx, c.queryTimeout, "rev-parse", "HEAD")
}

// CommitDate returns the committer date of the checked-out commit.
func (c *Checkout) CommitDate(ctx context.Context) (time.Time, error) {
	out, err := c.git(ctx, c.queryTimeout, "show", "-s", "--format=%cI", "HEAD")
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, out)
	if err != nil {
		return time.Time{}, errors.New(errors.CheckoutFailure, "Unparseable commit date", err)
	}
	return t, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (c *Checkout) git(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	return c.run(ctx, timeout, c.dir, args...)
}

// run executes a git command with a timeout and returns trimmed stdout.
func (c *Checkout) run(ctx context.Context, timeout time.Duration, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	c.logger.Debug("Executing git command", "args", strings.Join(args, " "), "timeout", timeout.String())

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.CheckoutFailure, "Git command timed out", err).WithDetails(map[string]interface{}{
				"args": args,
			})
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.New(errors.CheckoutFailure, "Git command failed", err).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}
		return "", errors.New(errors.CheckoutFailure, "Failed to execute git command", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// IsGitRepository reports whether dir is the top of a git working tree.
func IsGitRepository(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}
