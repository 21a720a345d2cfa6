package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/assets"
	"github.com/cdp-tools/cdpmirror/internal/config"
	"github.com/cdp-tools/cdpmirror/internal/crawler"
	"github.com/cdp-tools/cdpmirror/internal/download"
	"github.com/cdp-tools/cdpmirror/internal/report"
	"github.com/cdp-tools/cdpmirror/internal/resolver"
)

// ConnectStep launches the browser and establishes the portal session.
// A failed login is fatal for the run.
type ConnectStep struct {
	logger *slog.Logger
}

// NewConnectStep creates a ConnectStep.
func NewConnectStep(logger *slog.Logger) *ConnectStep {
	return &ConnectStep{logger: logger}
}

// Name implements Step.
func (s *ConnectStep) Name() string { return "connect" }

// Do implements Step.
func (s *ConnectStep) Do(ctx context.Context, run *Run) error {
	run.Journal.Section("CONNEXION")
	run.Journal.Log("Portail: %s", run.Portal.String())

	if err := run.Session.Connect(ctx); err != nil {
		run.Journal.Log("ECHEC lancement du navigateur: %v", err)
		return err
	}
	if err := run.Session.Login(ctx, run.Creds); err != nil {
		run.Journal.Log("ECHEC connexion: %v", err)
		return err
	}

	run.Journal.Log("Connexion établie")
	return nil
}

// CrawlStep walks the portal and downloads its files. Cancellation and
// a lost session end the walk but not the run: the steps after this one
// persist whatever was mirrored.
type CrawlStep struct {
	logger *slog.Logger
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(logger *slog.Logger) *CrawlStep {
	return &CrawlStep{logger: logger}
}

// Name implements Step.
func (s *CrawlStep) Name() string { return "crawl" }

// Do implements Step.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	run.Journal.Section("PARCOURS DU PORTAIL")

	watcher := download.NewWatcher(run.DownloadDir,
		config.DefaultDownloadPollInterval, run.Config.DownloadTimeout)

	orchOpts := []download.OrchestratorOption{
		download.WithDelay(run.Config.DownloadDelay),
		download.WithLogger(s.logger),
	}
	if run.Config.TestMode {
		orchOpts = append(orchOpts, download.WithLimit(config.TestMaxFiles))
	}
	if run.FileProgress != nil {
		orchOpts = append(orchOpts, download.WithProgress(run.FileProgress))
	}
	orch := download.NewOrchestrator(run.Session, watcher, run.Store, run.Registry, run.Journal, orchOpts...)

	schedOpts := []crawler.Option{
		crawler.WithLogger(s.logger),
	}
	if run.Config.TestMode {
		schedOpts = append(schedOpts, crawler.WithTestCaps(config.TestMaxMainDirs, config.TestMaxSubpages))
	}
	if run.PageProgress != nil {
		schedOpts = append(schedOpts, crawler.WithProgress(run.PageProgress))
	}
	sched := crawler.New(run.Portal, run.Session, orch,
		resolver.New(run.Portal, run.Registry, resolver.WithLogger(s.logger)),
		run.Registry, run.Store, run.Journal, schedOpts...)

	err := sched.Crawl(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Summary.Cancelled = true
		run.Journal.Log("Parcours interrompu")
		return nil
	case errors.Is(err, crawler.ErrSessionLost):
		run.Journal.Log("Session perdue, parcours arrêté")
		return nil
	default:
		return err
	}
}

// AssetsStep mirrors the portal's static chrome.
type AssetsStep struct {
	logger *slog.Logger
}

// NewAssetsStep creates an AssetsStep.
func NewAssetsStep(logger *slog.Logger) *AssetsStep {
	return &AssetsStep{logger: logger}
}

// Name implements Step.
func (s *AssetsStep) Name() string { return "assets" }

// Do implements Step.
func (s *AssetsStep) Do(ctx context.Context, run *Run) error {
	run.Journal.Section("ASSETS")

	m := assets.NewMirror(run.Portal.BaseURL(), run.Store, run.Journal,
		assets.WithLogger(s.logger))

	fetched, failed, err := m.Fetch(ctx)
	if err != nil {
		run.Summary.Cancelled = true
		return nil //nolint:nilerr // Cancellation mid-assets still yields a usable mirror
	}
	run.Summary.AssetsMirrored = fetched
	run.Summary.AssetsFailed = failed
	return nil
}

// MappingStep snapshots the registry into the mapping files and closes
// out the summary. It runs even after a failed crawl so the mirror on
// disk is always described by its mappings.
type MappingStep struct{}

// NewMappingStep creates a MappingStep.
func NewMappingStep() *MappingStep {
	return &MappingStep{}
}

// Name implements Step.
func (s *MappingStep) Name() string { return "mappings" }

// Do implements Step.
func (s *MappingStep) Do(_ context.Context, run *Run) error {
	run.Journal.Section("CORRESPONDANCES")

	snap := run.Registry.Snapshot()
	if err := report.NewMappingWriter(run.Store).WriteSnapshot(snap); err != nil {
		return fmt.Errorf("failed to write mappings: %w", err)
	}

	run.FinishSummary()
	run.Journal.Log("Correspondances écrites: %d pages, %d fichiers",
		len(snap.Pages), len(snap.Files))
	return nil
}

// ReportStep journals the final tally and, when configured, writes
// RAPPORT.md into the mirror root.
type ReportStep struct{}

// NewReportStep creates a ReportStep.
func NewReportStep() *ReportStep {
	return &ReportStep{}
}

// Name implements Step.
func (s *ReportStep) Name() string { return "report" }

// Do implements Step.
func (s *ReportStep) Do(_ context.Context, run *Run) error {
	run.Journal.Section("RÉSUMÉ")
	run.Journal.Log("Pages: %d sauvegardées, %d en échec",
		run.Summary.PagesSaved, run.Summary.PagesFailed)
	run.Journal.Log("Fichiers: %d copiés, %d en échec",
		run.Summary.FilesDownloaded, run.Summary.FilesFailed())
	run.Journal.Log("Assets: %d copiés, %d en échec",
		run.Summary.AssetsMirrored, run.Summary.AssetsFailed)
	run.Journal.Log("Durée: %s", run.Summary.Elapsed.Round(time.Second))

	if !run.Config.MarkdownReport {
		return nil
	}

	var buf bytes.Buffer
	if err := report.NewMarkdownWriter(&buf).Write(run.Summary); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return run.Store.WriteText("RAPPORT.md", buf.String())
}

// HistoryStep records the run in the history database. Skipped when
// history is disabled.
type HistoryStep struct {
	logger *slog.Logger
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(logger *slog.Logger) *HistoryStep {
	return &HistoryStep{logger: logger}
}

// Name implements Step.
func (s *HistoryStep) Name() string { return "history" }

// Do implements Step.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	if run.DB == nil {
		return nil
	}

	err := run.DB.SaveRun(ctx, run.RunID, run.Summary,
		run.Registry.Pages(), run.Registry.Files(), run.Registry.Events())
	if err != nil {
		// History is bookkeeping; losing it must not fail a finished run.
		s.logger.Warn("could not save run history", "run_id", run.RunID, "error", err)
		return nil
	}
	run.Journal.Log("Historique enregistré (run %s)", run.RunID)
	return nil
}
