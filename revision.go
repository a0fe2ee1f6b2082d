package pathmessages

import (
	"context"
	"errors"
	"fmt"
)

// ErrRevisionResolution is returned when a revision pair cannot be resolved or
// the version-control tool fails on it.
var ErrRevisionResolution = errors.New("revision resolution failed")

// RevisionPair delimits the change range under inspection.
type RevisionPair struct {
	Target string
	Source string
}

// Range renders the pair in git's two-dot notation.
func (p RevisionPair) Range() string {
	return p.Target + ".." + p.Source
}

func (p RevisionPair) String() string {
	return p.Range()
}

// RevisionResolutionError describes why a revision pair could not be used.
type RevisionResolutionError struct {
	Pair   RevisionPair
	Reason string
	Err    error
}

func (e *RevisionResolutionError) Error() string {
	msg := fmt.Sprintf("%s %q: %s", ErrRevisionResolution, e.Pair.Range(), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RevisionResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRevisionResolution}
	}
	return []error{ErrRevisionResolution, e.Err}
}

// ChangeSource provides the changes between the two revisions of a pair.
type ChangeSource interface {
	// ChangedFiles returns the repository-relative paths changed between the
	// pair, in the order reported by the version-control tool.
	ChangedFiles(ctx context.Context, pair RevisionPair) ([]string, error)

	// Diff returns the unified diff text between the pair.
	Diff(ctx context.Context, pair RevisionPair) (string, error)
}
