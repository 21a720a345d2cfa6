package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// markdownWriter renders the summary as a Markdown report, written into
// the mirror root as RAPPORT.md so the archive documents itself.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type markdownWriter struct {
	out io.Writer
}

// NewMarkdownWriter creates a Writer emitting a Markdown report.
func NewMarkdownWriter(out io.Writer) Writer {
	return &markdownWriter{out: out}
}

// Write implements Writer.
func (w *markdownWriter) Write(s *model.RunSummary) error {
	md := markdown.NewMarkdown(w.out)

	md.H1("Copie hors ligne du cahier de prépa")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Propriété", "Valeur"},
		Rows: [][]string{
			{"Portail", "`" + s.Portal + "`"},
			{"Dossier", "`" + s.OutputDir + "`"},
			{"Début", s.StartedAt.Format("2006-01-02 15:04:05")},
			{"Durée", s.Elapsed.Round(time.Second).String()},
			{"Statut", statusText(s)},
		},
	})
	md.PlainText("")

	md.H2("Contenu")
	md.Table(markdown.TableSet{
		Header: []string{"Élément", "Copiés", "Échecs"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.PagesSaved), strconv.Itoa(s.PagesFailed)},
			{"Fichiers", strconv.Itoa(s.FilesDownloaded), strconv.Itoa(s.FilesFailed())},
			{"Assets", strconv.Itoa(s.AssetsMirrored), strconv.Itoa(s.AssetsFailed)},
		},
	})
	md.PlainText("")

	if len(s.FailedFiles) > 0 {
		md.H2("Fichiers en échec")
		items := make([]string, 0, maxFailedListed+1)
		for i, f := range s.FailedFiles {
			if i == maxFailedListed {
				items = append(items, "... et "+strconv.Itoa(len(s.FailedFiles)-maxFailedListed)+" autres")
				break
			}
			items = append(items, f.DisplayName+" (id="+f.RemoteKey+") : "+f.Reason)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	md.H2("Utilisation")
	md.PlainText("Ouvrir `index.html` dans un navigateur. " +
		"Les documents sont dans `fichiers/`, accessibles par leur nom lisible " +
		"ou par leur identifiant stable.")

	return md.Build()
}

// statusText summarizes the run outcome for the report header.
func statusText(s *model.RunSummary) string {
	switch {
	case s.Cancelled:
		return "interrompue (copie partielle)"
	case s.HasFailures():
		return "terminée avec des échecs"
	default:
		return "terminée"
	}
}
