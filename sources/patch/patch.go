// Package patch reads the changes from a unified diff instead of a
// repository, for hosts that hand the tool a ready-made patch.
package patch

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/detect"
	"github.com/pathmessages/pathmessages/logging"
	"github.com/sourcegraph/go-diff/diff"
)

// Patch is a pathmessages.ChangeSource over a unified diff. The revision
// pair is informational only.
type Patch struct {
	// Path of the diff file, read on first use. Ignored when Content is set.
	Path string

	// Content is the diff text.
	Content string

	once sync.Once
	text string
	err  error
}

func (p *Patch) load() (string, error) {
	p.once.Do(func() {
		if p.Content != "" || p.Path == "" {
			p.text = p.Content
			return
		}
		data, err := os.ReadFile(p.Path)
		if err != nil {
			p.err = fmt.Errorf("failed to read patch: %w", err)
			return
		}
		p.text = string(data)
	})
	return p.text, p.err
}

// ChangedFiles returns the files the patch touches, in patch order.
func (p *Patch) ChangedFiles(_ context.Context, pair pathmessages.RevisionPair) ([]string, error) {
	text, err := p.load()
	if err != nil {
		return nil, err
	}
	logging.Debug().Str("range", pair.Range()).Str("patch", p.Path).Msg("reading changes from patch")
	if text == "" {
		return nil, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch %s: %w", p.Path, err)
	}

	var (
		files []string
		seen  = make(map[string]struct{}, len(fileDiffs))
	)
	for _, fd := range fileDiffs {
		name := detect.FileDiffName(fd)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}
	return files, nil
}

// Diff returns the patch text.
func (p *Patch) Diff(context.Context, pathmessages.RevisionPair) (string, error) {
	return p.load()
}
