package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/logging"
	"github.com/pathmessages/pathmessages/regexp"
	"github.com/pathmessages/pathmessages/report"
	"github.com/pathmessages/pathmessages/scan"
	"github.com/pathmessages/pathmessages/version"
	"github.com/spf13/cobra"
)

const configDescription = `rule file path
order of precedence:
1. --config/-c
2. env var PATHMESSAGES_CONFIG
3. ` + config.DefaultPath + ` in the working directory`

const revisionDescription = `revision to diff %s
order of precedence:
1. --%s
2. env var PATHMESSAGES_%s
3. env var %s
4. env var %s`

// configLoadMessage is the single line printed when the rule file cannot be used.
const configLoadMessage = "Could not load configuration. Check that it is a valid yaml"

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"config":          "config",
	"log-level":       "log_level",
	"report-format":   "format",
	"report-path":     "report_path",
	"report-template": "template",
	"target":          "target",
	"source":          "source",
	"repo":            "repo",
	"patch":           "patch",
	"ignore-path":     "ignore_path",
	"line-mode":       "line_mode",
	"workers":         "workers",
	"regex-engine":    "regex_engine",
	"verbose":         "verbose",
	"no-color":        "no_color",
}

// errInvalidCommand rejects an unknown command in a Lift invocation.
var errInvalidCommand = errors.New("invalid command")

// liftCommands are the commands Lift may ask for.
var liftCommands = []string{"run", "applicable", "name", "version"}

// NewRootCmd builds the command tree. An invocation that names no subcommand
// runs the rules; stray positional arguments are ignored.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pathmessages",
		Short:   "PathMessages posts a message when changed files match configured paths",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set the timeout for all the commands
			if timeout, err := cmd.Flags().GetInt("timeout"); err != nil {
				return err
			} else if timeout > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
				cmd.SetContext(ctx)
				cobra.OnFinalize(cancel)
			}
			return nil
		},
		Args:          cobra.ArbitraryArgs,
		RunE:          runRules,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", configDescription)
	flags.StringP("log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal)")
	flags.StringP("report-format", "f", "", "output format ("+strings.Join(report.Formats, ", ")+")")
	flags.StringP("report-path", "r", "", "report file (use \"-\" for stdout)")
	flags.String("report-template", "", "template file used to generate the report (implies --report-format=template)")
	flags.String("target", "", fmt.Sprintf(revisionDescription, "from", "target", "TARGET", "LIFT_DST_SHA", "GITHUB_BASE_REF"))
	flags.String("source", "", fmt.Sprintf(revisionDescription, "to", "source", "SOURCE", "LIFT_SRC_SHA", "GITHUB_SHA"))
	flags.String("repo", "", "git repository directory (default is the working directory)")
	flags.String("patch", "", "read the changes from a unified diff file instead of git")
	flags.StringP("ignore-path", "i", "", "path to "+scan.IgnoreFileName+" file or folder containing one (default is the working directory)")
	flags.String("line-mode", config.LineModeFirstHunk, "how to pick the reported line ("+config.LineModeFirstHunk+": first hunk of the whole diff, "+config.LineModeFile+": first hunk of the matched file)")
	flags.Int("workers", 1, "number of rules evaluated concurrently")
	flags.String("regex-engine", "", "regex engine for the hunk scanner (stdlib, re2)")
	flags.BoolP("verbose", "v", false, "also print each path message to stderr")
	flags.Bool("no-color", false, "turn off color for verbose output")
	flags.Int("timeout", 0, "set a timeout for the whole run in seconds (default \"0\", no timeout is set)")

	rootCmd.AddCommand(newRunCmd(), newApplicableCmd(), newNameCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the command line and exits with its status.
func Execute() {
	os.Exit(execute(NewRootCmd(), os.Args[1:], os.Stderr))
}

func execute(rootCmd *cobra.Command, args []string, stderr io.Writer) int {
	args, err := liftArgs(args)
	if err == nil {
		rootCmd.SetArgs(args)
		err = rootCmd.Execute()
	}
	if err == nil {
		return 0
	}

	var cerr *config.ConfigError
	switch {
	case strings.Contains(err.Error(), "unknown flag"):
		// exit code 126: Command invoked cannot execute
		_, _ = fmt.Fprintln(stderr, err)
		return 126
	case errors.Is(err, errInvalidCommand):
		logging.Debug().Err(err).Send()
		_, _ = fmt.Fprintln(stderr, "invalid command")
	case errors.As(err, &cerr):
		logging.Debug().Err(err).Msg("failed to load rules")
		_, _ = fmt.Fprintln(stderr, configLoadMessage)
	default:
		logging.Error().Err(err).Send()
	}
	return 1
}

// liftArgs turns the Lift v1 calling convention, `<dir> <commit> <command>`,
// into a plain subcommand invocation. Only three positional arguments form a
// Lift invocation; any other argument list passes through.
func liftArgs(args []string) ([]string, error) {
	if len(args) != 3 || slices.ContainsFunc(args, func(a string) bool { return strings.HasPrefix(a, "-") }) {
		return args, nil
	}
	logging.Debug().
		Str("dir", args[0]).
		Str("commit", args[1]).
		Str("command", args[2]).
		Msg("lift invocation")
	if !slices.Contains(liftCommands, args[2]) {
		return nil, fmt.Errorf("%w: %q", errInvalidCommand, args[2])
	}
	return args[2:], nil
}

// loadSettings resolves the settings and applies the process-wide ones:
// log level and regex engine.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		overrides[key] = f.Value.String()
	}
	if _, ok := overrides["template"]; ok {
		if _, ok := overrides["format"]; !ok {
			overrides["format"] = report.FormatTemplate
		}
	}

	settings, err := config.LoadSettings(overrides)
	if err != nil {
		return settings, err
	}
	initLog(settings.LogLevel)

	if err := regexp.SetEngine(settings.RegexEngine); err != nil {
		return settings, err
	}
	logging.Debug().Msgf("using %s regex engine", regexp.Version())
	return settings, nil
}

func initLog(name string) {
	level, ok := logging.ParseLevel(name)
	if !ok {
		logging.Warn().Msgf("unknown log level: %s", name)
	}
	logging.Logger = logging.Logger.Level(level)
}

func fileExists(fileName string) bool {
	info, err := os.Stat(fileName)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func FormatDuration(d time.Duration) string {
	scale := 100 * time.Second
	// look for the max scale that is smaller than d
	for scale > d {
		scale = scale / 10
	}
	return d.Round(scale / 100).String()
}
