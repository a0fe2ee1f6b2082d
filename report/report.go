package report

import (
	"fmt"
	"strings"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/config"
)

// Report formats accepted by New.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatSARIF    = "sarif"
	FormatTemplate = "template"
)

// Formats lists the accepted formats, default first.
var Formats = []string{FormatJSON, FormatCSV, FormatSARIF, FormatTemplate}

// New returns the reporter for format. rules feed the SARIF rule table and
// templatePath is required by the template format.
func New(format string, rules []config.Rule, templatePath string) (pathmessages.Reporter, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return &JsonReporter{}, nil
	case FormatCSV:
		return &CsvReporter{}, nil
	case FormatSARIF:
		return &SarifReporter{OrderedRules: rules}, nil
	case FormatTemplate:
		if templatePath == "" {
			return nil, fmt.Errorf("report format %q requires a template path", FormatTemplate)
		}
		return NewTemplateReporter(templatePath)
	}
	return nil, fmt.Errorf("unknown report format %q (expected one of %s)", format, strings.Join(Formats, ", "))
}
