package report

import (
	"errors"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// maxFailedListed caps the failed-file list in human-facing output; the
// complete list is always in the mapping file and the database.
const maxFailedListed = 10

// Writer renders one run summary to some destination.
type Writer interface {
	// Write renders the summary.
	Write(summary *model.RunSummary) error
}

// multiWriter fans a summary out to several writers.
type multiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer writing to all the given writers.
// Every writer is attempted even when an earlier one fails.
func NewMultiWriter(writers ...Writer) Writer {
	return &multiWriter{writers: writers}
}

// Write implements Writer.
func (m *multiWriter) Write(summary *model.RunSummary) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
