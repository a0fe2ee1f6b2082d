package report

import (
	"encoding/json"
	"io"

	"github.com/pathmessages/pathmessages"
)

// JsonReporter writes findings as a single compact JSON array.
type JsonReporter struct {
}

var _ pathmessages.Reporter = (*JsonReporter)(nil)

func (t *JsonReporter) Write(w io.WriteCloser, findings []pathmessages.Finding) error {
	if findings == nil {
		// an empty run is [] rather than null
		findings = []pathmessages.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(findings)
}
