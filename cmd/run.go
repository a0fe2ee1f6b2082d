package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/logging"
	"github.com/pathmessages/pathmessages/report"
	"github.com/pathmessages/pathmessages/scan"
	"github.com/pathmessages/pathmessages/sources/git"
	"github.com/pathmessages/pathmessages/sources/patch"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "evaluate the rules against the changed files and print the path messages",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
}

func runRules(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	rules, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}
	logging.Debug().Int("rules", len(rules)).Str("config", settings.ConfigPath).Msg("loaded rules")

	reporter, err := report.New(settings.Format, rules, settings.Template)
	if err != nil {
		return err
	}

	pair, src, err := changeSource(settings)
	if err != nil {
		return err
	}

	p := &scan.Pipeline{
		Rules:    rules,
		Source:   src,
		LineMode: settings.LineMode,
		Workers:  settings.Workers,
		Ignore:   scan.LoadIgnoreFiles(settings.IgnorePath, settings.RepoDir),
	}

	start := time.Now()
	findings, err := p.Run(cmd.Context(), pair)
	if err != nil {
		return err
	}
	logging.Info().
		Int("rules", len(rules)).
		Int("messages", len(findings)).
		Msgf("evaluated in %s", FormatDuration(time.Since(start)))

	if settings.Verbose {
		color := scan.ColorEnabled(os.Stderr, settings.NoColor)
		for _, f := range findings {
			scan.PrintFinding(cmd.ErrOrStderr(), f, color)
		}
	}

	return writeReport(cmd, reporter, settings.ReportPath, findings)
}

// changeSource picks the patch file when one is given, git otherwise. A
// patch does not need a revision pair.
func changeSource(settings config.Settings) (pathmessages.RevisionPair, pathmessages.ChangeSource, error) {
	pair, err := settings.Revisions()
	if settings.PatchPath != "" {
		if err != nil {
			logging.Debug().Err(err).Msg("reading patch without a revision pair")
		}
		return pair, &patch.Patch{Path: settings.PatchPath}, nil
	}
	if err != nil {
		return pair, nil, err
	}
	return pair, &git.Git{RepoDir: settings.RepoDir}, nil
}

func writeReport(cmd *cobra.Command, reporter pathmessages.Reporter, reportPath string, findings []pathmessages.Finding) error {
	var w io.WriteCloser = nopCloser{cmd.OutOrStdout()}
	if reportPath != "" && reportPath != "-" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("could not create report: %w", err)
		}
		w = f
	}

	err := reporter.Write(w, findings)
	if cerr := w.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
