// Package git reads the changes between two revisions of a local
// repository by shelling out to the git binary.
package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/logging"
)

// Git is a pathmessages.ChangeSource backed by a git work tree.
type Git struct {
	// RepoDir is the repository directory. Empty means the working directory.
	RepoDir string
}

// ChangedFiles runs `git diff --name-only target..source`.
func (g *Git) ChangedFiles(ctx context.Context, pair pathmessages.RevisionPair) ([]string, error) {
	out, err := g.run(ctx, pair, "diff", "--name-only", "--no-color", pair.Range())
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		files = append(files, line)
	}
	return files, nil
}

// Diff runs `git diff target..source`.
func (g *Git) Diff(ctx context.Context, pair pathmessages.RevisionPair) (string, error) {
	return g.run(ctx, pair, "diff", "--no-color", "--no-ext-diff", pair.Range())
}

func (g *Git) run(ctx context.Context, pair pathmessages.RevisionPair, args ...string) (string, error) {
	// paths are printed verbatim instead of C-quoted
	args = append([]string{"-c", "core.quotePath=false"}, args...)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.RepoDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug().Strs("args", args).Str("dir", g.RepoDir).Msg("running git")
	out, err := cmd.Output()
	if err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "git " + strings.Join(args[2:], " ") + " failed"
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return "", &pathmessages.RevisionResolutionError{Pair: pair, Reason: reason, Err: err}
	}
	return string(out), nil
}
