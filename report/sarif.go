package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pathmessages/pathmessages"
	"github.com/pathmessages/pathmessages/config"
	"github.com/pathmessages/pathmessages/version"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"

	fingerprintKey = "pathMessages/v1"
)

// SarifReporter writes a SARIF 2.1.0 log with one rule per configured rule.
type SarifReporter struct {
	OrderedRules []config.Rule
}

var _ pathmessages.Reporter = (*SarifReporter)(nil)

func (r *SarifReporter) Write(w io.WriteCloser, findings []pathmessages.Finding) error {
	sarif := Sarif{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    r.getRuns(findings),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", " ")
	return encoder.Encode(sarif)
}

func (r *SarifReporter) getRuns(findings []pathmessages.Finding) []Runs {
	return []Runs{
		{
			Tool:    r.getTool(),
			Results: getResults(findings),
		},
	}
}

func (r *SarifReporter) getTool() Tool {
	rules := make([]Rules, 0, len(r.OrderedRules))
	for _, rule := range r.OrderedRules {
		rules = append(rules, Rules{
			ID:   rule.Title,
			Name: rule.Title,
			Description: ShortDescription{
				Text: rule.Message,
			},
			Properties: RuleProperties{
				Patterns: rule.Paths,
			},
		})
	}

	return Tool{
		Driver: Driver{
			Name:            version.Name,
			SemanticVersion: version.Version,
			Rules:           rules,
		},
	}
}

func getResults(findings []pathmessages.Finding) []Results {
	results := []Results{}
	for _, f := range findings {
		results = append(results, Results{
			Message: Message{
				Text: f.Message,
			},
			RuleId: f.Type,
			Level:  "note",
			PartialFingerprints: map[string]string{
				fingerprintKey: f.Fingerprint(),
			},
			Locations: []Locations{
				{
					PhysicalLocation: PhysicalLocation{
						ArtifactLocation: ArtifactLocation{
							URI: strings.TrimPrefix(f.File, "./"),
						},
						Region: Region{
							StartLine: f.Line,
						},
					},
				},
			},
		})
	}
	return results
}

type Sarif struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Runs `json:"runs"`
}

type Runs struct {
	Tool    Tool      `json:"tool"`
	Results []Results `json:"results"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name            string  `json:"name"`
	SemanticVersion string  `json:"semanticVersion"`
	InformationUri  string  `json:"informationUri,omitempty"`
	Rules           []Rules `json:"rules"`
}

type Rules struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description ShortDescription `json:"shortDescription"`
	Properties  RuleProperties   `json:"properties"`
}

type ShortDescription struct {
	Text string `json:"text"`
}

type RuleProperties struct {
	Patterns []string `json:"patterns"`
}

type Results struct {
	Message             Message           `json:"message"`
	RuleId              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Locations           []Locations       `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
}

type Message struct {
	Text string `json:"text"`
}

type Locations struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

type Region struct {
	StartLine int `json:"startLine"`
}
