package pathmessages

import (
	"io"
)

// Finding is a single path message produced by a rule.
type Finding struct {
	// File is the first changed file, in changed-file order, matched by the rule.
	File string `json:"file"`

	// Line is the 1-based line the message points at.
	Line int `json:"line"`

	// Message is the rule message followed by the match description.
	Message string `json:"message"`

	// Type is the title of the rule that produced the finding.
	Type string `json:"type"`
}

// Reporter writes a list of findings in a specific format.
type Reporter interface {
	Write(w io.WriteCloser, findings []Finding) error
}
