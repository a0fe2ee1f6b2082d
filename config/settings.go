package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pathmessages/pathmessages"
)

// Line modes select how the line of a finding is located.
const (
	// LineModeFirstHunk uses the first hunk of the whole diff.
	LineModeFirstHunk = "first-hunk"
	// LineModeFile uses the first hunk of the matched file.
	LineModeFile = "file"
)

// EnvPrefix prefixes the environment variables mapped onto Settings.
const EnvPrefix = "PATHMESSAGES_"

// Settings are the tool options, as opposed to the rules.
type Settings struct {
	ConfigPath  string `koanf:"config"`
	LogLevel    string `koanf:"log_level"`
	Format      string `koanf:"format"`
	ReportPath  string `koanf:"report_path"`
	Template    string `koanf:"template"`
	Target      string `koanf:"target"`
	Source      string `koanf:"source"`
	RepoDir     string `koanf:"repo"`
	PatchPath   string `koanf:"patch"`
	IgnorePath  string `koanf:"ignore_path"`
	LineMode    string `koanf:"line_mode"`
	Workers     int    `koanf:"workers"`
	RegexEngine string `koanf:"regex_engine"`
	Verbose     bool   `koanf:"verbose"`
	NoColor     bool   `koanf:"no_color"`
}

// Defaults are the lowest layer of LoadSettings.
func Defaults() map[string]any {
	return map[string]any{
		"config":       DefaultPath,
		"log_level":    "info",
		"format":       "json",
		"line_mode":    LineModeFirstHunk,
		"workers":      1,
		"regex_engine": "stdlib",
	}
}

// ciVariables map CI provided variables to revision keys. Later entries win.
var ciVariables = []struct {
	prefix string
	keys   map[string]string
}{
	{prefix: "GITHUB_", keys: map[string]string{"GITHUB_BASE_REF": "target", "GITHUB_SHA": "source"}},
	{prefix: "LIFT_", keys: map[string]string{"LIFT_DST_SHA": "target", "LIFT_SRC_SHA": "source"}},
}

// LoadSettings layers, from lowest to highest precedence: defaults, GitHub
// variables, Lift variables, PATHMESSAGES_* variables and overrides (the
// flags set on the command line).
func LoadSettings(overrides map[string]any) (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, ci := range ciVariables {
		keys := ci.keys
		err := k.Load(env.Provider(ci.prefix, ".", func(s string) string {
			return keys[s]
		}), nil)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to load %s* variables: %w", ci.prefix, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load %s* variables: %w", EnvPrefix, err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Settings{}, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var s Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &s,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &s, unmarshalConf); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ResolveConfigPath resolves the rule file location alone, without reading or
// validating any other setting: flag, then PATHMESSAGES_CONFIG, then
// DefaultPath.
func ResolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (s Settings) validate() error {
	switch s.LineMode {
	case LineModeFirstHunk, LineModeFile:
	default:
		return fmt.Errorf("unknown line mode %q (expected %s or %s)", s.LineMode, LineModeFirstHunk, LineModeFile)
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	return nil
}

// Revisions returns the resolved revision pair.
func (s Settings) Revisions() (pathmessages.RevisionPair, error) {
	pair := pathmessages.RevisionPair{Target: s.Target, Source: s.Source}
	switch {
	case pair.Target == "" && pair.Source == "":
		return pair, &pathmessages.RevisionResolutionError{Pair: pair, Reason: "no revisions set (LIFT_DST_SHA/LIFT_SRC_SHA or GITHUB_BASE_REF/GITHUB_SHA)"}
	case pair.Target == "":
		return pair, &pathmessages.RevisionResolutionError{Pair: pair, Reason: "no target revision set (LIFT_DST_SHA or GITHUB_BASE_REF)"}
	case pair.Source == "":
		return pair, &pathmessages.RevisionResolutionError{Pair: pair, Reason: "no source revision set (LIFT_SRC_SHA or GITHUB_SHA)"}
	}
	return pair, nil
}
