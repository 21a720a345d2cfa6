package pipeline

import (
	"time"

	"github.com/cdp-tools/cdpmirror/internal/browser"
	"github.com/cdp-tools/cdpmirror/internal/config"
	"github.com/cdp-tools/cdpmirror/internal/database"
	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// Run is the shared state of one mirror run, passed through every
// pipeline step. The command layer builds it (store, journal, session,
// optional database) and the steps fill in the rest.
type Run struct {
	// Config is the effective run configuration.
	Config *config.Config

	// Portal is the normalized portal being mirrored.
	Portal model.Portal

	// Creds are the portal credentials used by the connect step.
	Creds browser.Credentials

	// Session is the browser session. Owned by the command layer, which
	// closes it after the pipeline finishes.
	Session *browser.Session

	// Store owns the mirror output tree.
	Store *storage.Store

	// Journal is the run journal written into the mirror root.
	Journal *journal.Journal

	// Registry is the identity registry shared by resolver, scheduler
	// and orchestrator.
	Registry *registry.Registry

	// DB is the run-history database, nil when history is disabled.
	DB *database.DB

	// RunID identifies this run in the history database.
	RunID string

	// DownloadDir is the session-private drop directory.
	DownloadDir string

	// Summary accumulates the end-of-run tally.
	Summary *model.RunSummary

	// StartedAt anchors the elapsed time in the summary.
	StartedAt time.Time

	// PageProgress and FileProgress, when set, are invoked per settled
	// page and file. The command layer drives its progress bar with them.
	PageProgress func()
	FileProgress func()
}

// NewRun creates a Run with a fresh registry and an initialized summary.
func NewRun(cfg *config.Config, portal model.Portal) *Run {
	now := time.Now()
	return &Run{
		Config:    cfg,
		Portal:    portal,
		Registry:  registry.New(),
		StartedAt: now,
		Summary: &model.RunSummary{
			Portal:    portal.String(),
			OutputDir: cfg.OutputDir,
			TestMode:  cfg.TestMode,
			StartedAt: now,
		},
	}
}

// FinishSummary folds the registry's final census into the summary.
func (r *Run) FinishSummary() {
	stats := r.Registry.Stats()
	r.Summary.PagesSaved = stats.PagesFetched
	r.Summary.PagesFailed = stats.PagesFailed
	r.Summary.FilesDownloaded = stats.FilesDownloaded
	r.Summary.FailedFiles = r.Registry.FailedFiles()
	r.Summary.Elapsed = time.Since(r.StartedAt)
}
