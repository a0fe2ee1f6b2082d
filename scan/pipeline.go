package scan

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fatih/semgroup"
	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/detect"
	"github.com/pathmessages/pathmessages/logging"
)

// maxListedMatches is the number of matched files above which the
// description lists the rule patterns instead of the files.
const maxListedMatches = 3

type Pipeline struct {
	// rules, in configuration order
	Rules []config.Rule

	// changed files and diff text provider
	Source pathmessages.ChangeSource

	// LineMode is config.LineModeFirstHunk (default) or config.LineModeFile.
	LineMode string

	// Workers bounds concurrent rule evaluation. Values below 2 evaluate
	// sequentially.
	Workers int

	// Ignore silences listed findings.
	Ignore IgnoreSet
}

// Run evaluates the pipeline rules against the changes between pair.
func (p *Pipeline) Run(ctx context.Context, pair pathmessages.RevisionPair) ([]pathmessages.Finding, error) {
	changedFiles, err := p.Source.ChangedFiles(ctx, pair)
	if err != nil {
		return nil, err
	}
	logging.Debug().
		Str("range", pair.Range()).
		Int("files", len(changedFiles)).
		Msg("changed files")

	return p.Evaluate(ctx, pair, p.Rules, changedFiles)
}

// Evaluate produces at most one finding per rule, in rule order. The diff
// text for pair is fetched from the source the first time a rule needs it.
func (p *Pipeline) Evaluate(ctx context.Context, pair pathmessages.RevisionPair, rules []config.Rule, changedFiles []string) ([]pathmessages.Finding, error) {
	d := &diffText{fetch: func() (string, error) { return p.Source.Diff(ctx, pair) }}

	results := make([]*pathmessages.Finding, len(rules))
	if p.Workers < 2 || len(rules) < 2 {
		for i, rule := range rules {
			finding, err := p.evaluateRule(rule, changedFiles, d)
			if err != nil {
				return nil, err
			}
			results[i] = finding
		}
		return collect(results), nil
	}

	sg := semgroup.NewGroup(ctx, int64(p.Workers))
	for i, rule := range rules {
		sg.Go(func() error {
			finding, err := p.evaluateRule(rule, changedFiles, d)
			if err != nil {
				return err
			}
			// each goroutine owns its slot
			results[i] = finding
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, err
	}
	return collect(results), nil
}

func (p *Pipeline) evaluateRule(rule config.Rule, changedFiles []string, d *diffText) (*pathmessages.Finding, error) {
	matches, err := detect.MatchPaths(rule.Paths, changedFiles)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule.Title, err)
	}
	if len(matches) == 0 {
		logging.Trace().Str("rule", rule.Title).Msg("no matching files")
		return nil, nil
	}
	file := matches[0]

	text, err := d.get()
	if err != nil {
		return nil, err
	}

	var (
		line int
		ok   bool
	)
	if p.LineMode == config.LineModeFile {
		line, ok = detect.LocateFileLine(text, file)
	} else {
		line, ok = detect.LocateLine(text)
	}
	if !ok {
		logging.Info().
			Str("rule", rule.Title).
			Str("file", file).
			Msg("No diff line. Only binary files were changed?")
		return nil, nil
	}

	if detect.Excluded(rule, changedFiles) {
		logging.Debug().Str("rule", rule.Title).Msg("excluded by also_changed")
		return nil, nil
	}

	finding := &pathmessages.Finding{
		File:    file,
		Line:    line,
		Message: rule.Message + " " + MatchDescription(rule, matches),
		Type:    rule.Title,
	}
	if p.Ignore.Ignored(*finding) {
		logging.Debug().Str("rule", rule.Title).Str("fingerprint", finding.Fingerprint()).Msg("ignored")
		return nil, nil
	}
	return finding, nil
}

// MatchDescription names the matched files, or the rule patterns when too
// many files matched to list them.
func MatchDescription(rule config.Rule, matches []string) string {
	if len(matches) <= maxListedMatches {
		return "(on " + strings.Join(matches, " ") + ")"
	}
	return "(on patterns: " + strings.Join(rule.Paths, ", ") + ")"
}

func collect(results []*pathmessages.Finding) []pathmessages.Finding {
	findings := make([]pathmessages.Finding, 0, len(results))
	for _, f := range results {
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

// diffText fetches the diff once and shares it between rules.
type diffText struct {
	fetch func() (string, error)

	once sync.Once
	text string
	err  error
}

func (d *diffText) get() (string, error) {
	d.once.Do(func() {
		d.text, d.err = d.fetch()
	})
	return d.text, d.err
}
