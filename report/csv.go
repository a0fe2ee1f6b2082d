package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pathmessages/pathmessages"
)

type CsvReporter struct {
}

var _ pathmessages.Reporter = (*CsvReporter)(nil)

func (r *CsvReporter) Write(w io.WriteCloser, findings []pathmessages.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"File", "Line", "Type", "Message"}); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{f.File, strconv.Itoa(f.Line), f.Type, f.Message}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
