package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// consoleWriter renders the end-of-run summary as the plain text block
// printed to the operator's terminal.
type consoleWriter struct {
	out io.Writer
}

// NewConsoleWriter creates a Writer rendering a human-readable summary.
func NewConsoleWriter(out io.Writer) Writer {
	return &consoleWriter{out: out}
}

// Write implements Writer.
func (c *consoleWriter) Write(s *model.RunSummary) error {
	var b strings.Builder

	sep := strings.Repeat("=", 60)
	b.WriteString(sep + "\n")
	b.WriteString("  RÉSUMÉ DE LA COPIE\n")
	b.WriteString(sep + "\n")

	fmt.Fprintf(&b, "Portail            : %s\n", s.Portal)
	fmt.Fprintf(&b, "Dossier de sortie  : %s\n", s.OutputDir)
	if s.TestMode {
		b.WriteString("Mode               : test (copie partielle)\n")
	}
	fmt.Fprintf(&b, "Pages sauvegardées : %d", s.PagesSaved)
	if s.PagesFailed > 0 {
		fmt.Fprintf(&b, " (%d en échec)", s.PagesFailed)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Fichiers copiés    : %d", s.FilesDownloaded)
	if n := s.FilesFailed(); n > 0 {
		fmt.Fprintf(&b, " (%d en échec)", n)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Assets copiés      : %d", s.AssetsMirrored)
	if s.AssetsFailed > 0 {
		fmt.Fprintf(&b, " (%d en échec)", s.AssetsFailed)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Durée              : %s\n", s.Elapsed.Round(time.Second))
	if s.Cancelled {
		b.WriteString("Copie interrompue avant la fin.\n")
	}

	if len(s.FailedFiles) > 0 {
		b.WriteString("\nFichiers en échec :\n")
		for i, f := range s.FailedFiles {
			if i == maxFailedListed {
				fmt.Fprintf(&b, "  ... et %d autres\n", len(s.FailedFiles)-maxFailedListed)
				break
			}
			fmt.Fprintf(&b, "  - %s (id=%s) : %s\n", f.DisplayName, f.RemoteKey, f.Reason)
		}
	}

	_, err := io.WriteString(c.out, b.String())
	return err
}
