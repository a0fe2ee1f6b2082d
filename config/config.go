package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pathmessages/pathmessages/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the rule file looked up in the working directory.
const DefaultPath = ".pathmessages.yaml"

// ErrConfig is wrapped by every configuration failure.
var ErrConfig = errors.New("invalid configuration")

// ConfigError describes a configuration that is missing, unreadable or
// structurally invalid.
type ConfigError struct {
	Path string
	Rule string
	Err  error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(ErrConfig.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " (rule %q)", e.Rule)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}

// Rule maps a set of path patterns to a message.
type Rule struct {
	// Title identifies the rule and becomes the type of its findings.
	Title string

	// Message is shown verbatim, followed by the match description.
	Message string

	// Paths are gitignore-style patterns, in declaration order.
	Paths []string

	// Exclusion suppresses the rule when it matches. nil means no exclusion.
	Exclusion *Exclusion
}

// Exclusion holds the conditions under which a matching rule stays silent.
type Exclusion struct {
	// AlsoChanged suppresses the rule when any of these patterns matches a
	// changed file.
	AlsoChanged []string
}

// Load reads and parses the rule file at path.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	rules, err := Parse(data)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			cerr.Path = path
			return nil, cerr
		}
		return nil, &ConfigError{Path: path, Err: err}
	}

	logging.Debug().Str("path", path).Int("rules", len(rules)).Msg("loaded configuration")
	return rules, nil
}

// Parse decodes a title-keyed YAML mapping into rules, keeping the order in
// which the titles are declared.
func Parse(data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ConfigError{Err: errors.New("no rules defined")}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Err: fmt.Errorf("line %d: expected a mapping of rule titles, got %s", root.Line, kindName(root.Kind))}
	}

	rules := make([]Rule, 0, len(root.Content)/2)
	seen := make(map[string]struct{}, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, &ConfigError{Err: fmt.Errorf("line %d: rule title must be a string", key.Line)}
		}
		title := key.Value
		if _, dup := seen[title]; dup {
			return nil, &ConfigError{Rule: title, Err: fmt.Errorf("line %d: duplicate rule title", key.Line)}
		}
		seen[title] = struct{}{}

		rule, err := decodeRule(title, value)
		if err != nil {
			return nil, &ConfigError{Rule: title, Err: err}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

type ruleSpec struct {
	Message *string     `yaml:"message"`
	Paths   patternList `yaml:"paths"`
	Except  *struct {
		AlsoChanged patternList `yaml:"also_changed"`
	} `yaml:"except"`
}

func decodeRule(title string, node *yaml.Node) (Rule, error) {
	if node.Kind != yaml.MappingNode {
		return Rule{}, fmt.Errorf("line %d: expected a mapping with message and paths, got %s", node.Line, kindName(node.Kind))
	}

	var spec ruleSpec
	if err := node.Decode(&spec); err != nil {
		return Rule{}, err
	}
	if spec.Message == nil {
		return Rule{}, errors.New("missing required field \"message\"")
	}
	if !spec.Paths.set {
		return Rule{}, errors.New("missing required field \"paths\"")
	}
	if len(spec.Paths.patterns) == 0 {
		logging.Warn().Str("rule", title).Msg("rule has no path patterns and will never match")
	}

	rule := Rule{
		Title:   title,
		Message: *spec.Message,
		Paths:   spec.Paths.patterns,
	}
	if spec.Except != nil && len(spec.Except.AlsoChanged.patterns) > 0 {
		rule.Exclusion = &Exclusion{AlsoChanged: spec.Except.AlsoChanged.patterns}
	}
	return rule, nil
}

// patternList accepts either a newline separated string or a sequence.
type patternList struct {
	patterns []string
	set      bool
}

func (l *patternList) UnmarshalYAML(node *yaml.Node) error {
	l.set = true
	switch node.Kind {
	case yaml.ScalarNode:
		l.patterns = SplitPatterns(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		for _, item := range items {
			l.patterns = append(l.patterns, SplitPatterns(item)...)
		}
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of patterns, got %s", node.Line, kindName(node.Kind))
	}
}

// SplitPatterns splits a newline separated pattern block, dropping blank
// lines.
func SplitPatterns(s string) []string {
	var patterns []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}
