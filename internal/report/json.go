package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// jsonWriter renders the summary as indented JSON, for scripting around
// the mirror (cron jobs that alert on failures, for instance).
type jsonWriter struct {
	out io.Writer
}

// NewJSONWriter creates a Writer emitting the summary as JSON.
func NewJSONWriter(out io.Writer) Writer {
	return &jsonWriter{out: out}
}

// Write implements Writer.
func (j *jsonWriter) Write(s *model.RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	data = append(data, '\n')
	if _, err := j.out.Write(data); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
