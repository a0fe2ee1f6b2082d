package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/group/all"
	"github.com/pathmessages/pathmessages"
)

// TemplateReporter renders findings with a user supplied text/template.
// The template receives the finding list and every sprout function.
type TemplateReporter struct {
	template *template.Template
}

var _ pathmessages.Reporter = (*TemplateReporter)(nil)

func NewTemplateReporter(templatePath string) (*TemplateReporter, error) {
	if templatePath == "" {
		return nil, fmt.Errorf("template path cannot be empty")
	}

	file, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	handler := sprout.New(sprout.WithGroups(all.RegistryGroup()))
	tmpl, err := template.New(filepath.Base(templatePath)).Funcs(handler.Build()).Parse(string(file))
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return &TemplateReporter{template: tmpl}, nil
}

func (t *TemplateReporter) Write(w io.WriteCloser, findings []pathmessages.Finding) error {
	return t.template.Execute(w, findings)
}
