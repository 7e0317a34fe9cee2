// Package gitsummary summarises YAML configuration changes between git
// commits: diff collection, LLM summaries, requirement and standards checks,
// impact analysis and Markdown reports.
package gitsummary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidIndex is returned when a commit index is out of range.
	ErrInvalidIndex = errors.New("invalid commit index")
	// ErrNoCommits is returned when a diff is requested on an empty history.
	ErrNoCommits = errors.New("no commits")
)

// Commit is one entry of the history, newest first.
type Commit struct {
	Hash    string
	Author  string
	Date    time.Time
	Message string
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// git runs a git subcommand in repo and returns its stdout.
func git(ctx context.Context, repo string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repo
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// CheckRepo returns an error unless repo is inside a git work tree.
func CheckRepo(ctx context.Context, repo string) error {
	_, err := git(ctx, repo, "rev-parse", "--is-inside-work-tree")
	return err
}

// History returns up to limit commits reachable from branch, newest first.
func History(ctx context.Context, repo, branch string, limit int) ([]Commit, error) {
	out, err := git(ctx, repo, "log", branch,
		fmt.Sprintf("-n%d", limit),
		"--pretty=format:%H"+fieldSep+"%an"+fieldSep+"%ct"+fieldSep+"%B"+recordSep,
	)
	if err != nil {
		return nil, err
	}
	return parseLog(string(out)), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) < 4 {
			continue
		}
		c := Commit{Hash: parts[0], Author: parts[1], Message: strings.TrimSpace(parts[3])}
		if ts, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			c.Date = time.Unix(ts, 0)
		}
		commits = append(commits, c)
	}
	return commits
}

// Resolve maps a possibly negative index onto commits; -1 is the oldest.
func Resolve(n, i int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, i, n)
	}
	return i, nil
}

// RawDiff returns the patch of added and modified files between two commits.
func RawDiff(ctx context.Context, repo, from, to string) (string, error) {
	out, err := git(ctx, repo, "diff", from, to, "--patch", "--diff-filter=AM")
	if err != nil {
		return "", err
	}
	return sanitize(out), nil
}

// Show returns the full patch of a single commit.
func Show(ctx context.Context, repo, hash string) (string, error) {
	out, err := git(ctx, repo, "show", hash)
	if err != nil {
		return "", err
	}
	return sanitize(out), nil
}

// FileAt returns the lines of path as of commit.
func FileAt(ctx context.Context, repo, commit, path string) ([]string, error) {
	out, err := git(ctx, repo, "show", commit+":"+path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(sanitize(out), "\n"), "\n"), nil
}

// Diff collects the changes between commits[i] and commits[j], grouped by
// extension then file. A single-commit history yields the initial commit.
func Diff(ctx context.Context, repo string, commits []Commit, i, j int, opts DiffOptions) (Groups, error) {
	switch len(commits) {
	case 0:
		return nil, ErrNoCommits
	case 1:
		show, err := Show(ctx, repo, commits[0].Hash)
		if err != nil {
			return nil, err
		}
		return Groups{InitialCommitGroup: {NewFilesKey: nonBlank(strings.Split(show, "\n"))}}, nil
	}

	from, to, err := pair(commits, i, j)
	if err != nil {
		return nil, err
	}
	raw, err := RawDiff(ctx, repo, from, to)
	if err != nil {
		return nil, err
	}
	return ParsePatch(raw, opts, func(path string) ([]string, error) {
		return FileAt(ctx, repo, to, path)
	})
}

// Patch returns the raw patch between commits[i] and commits[j], or the
// initial commit when the history has a single commit.
func Patch(ctx context.Context, repo string, commits []Commit, i, j int) (string, error) {
	switch len(commits) {
	case 0:
		return "", ErrNoCommits
	case 1:
		return Show(ctx, repo, commits[0].Hash)
	}
	from, to, err := pair(commits, i, j)
	if err != nil {
		return "", err
	}
	return RawDiff(ctx, repo, from, to)
}

func pair(commits []Commit, i, j int) (from, to string, err error) {
	a, err := Resolve(len(commits), i)
	if err != nil {
		return "", "", err
	}
	b, err := Resolve(len(commits), j)
	if err != nil {
		return "", "", err
	}
	return commits[a].Hash, commits[b].Hash, nil
}

func sanitize(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "")
}
