package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// Trigger fires a download for a file remote key. The browser session
// implements it; tests substitute a fake that drops a file directly.
type Trigger interface {
	TriggerDownload(ctx context.Context, fileRemoteKey string) error
}

// Orchestrator turns file work items into stored artifacts. Downloads
// are strictly serialized: the drop directory is the only completion
// signal available, and one in-flight download at a time is what makes
// "the new file is mine" sound.
type Orchestrator struct {
	trigger Trigger
	watcher *Watcher
	store   *storage.Store
	reg     *registry.Registry
	journal *journal.Journal
	logger  *slog.Logger

	delay    time.Duration
	limit    int
	fetched  int
	progress func()
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDelay sets the politeness pause after each download.
func WithDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.delay = d
	}
}

// WithLimit caps the number of downloads; 0 means unlimited. Used by
// test mode to keep a dry run small.
func WithLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.limit = n
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgress registers a callback invoked after every settled file,
// successful or not. The command layer drives its progress bar with it.
func WithProgress(fn func()) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(trigger Trigger, watcher *Watcher, store *storage.Store, reg *registry.Registry, jrn *journal.Journal, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		trigger: trigger,
		watcher: watcher,
		store:   store,
		reg:     reg,
		journal: jrn,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Download fetches one file work item end to end: snapshot the drop
// directory, trigger the download, wait for the artifact, store it under
// its sanitized display name, and create the stable alias the rewritten
// pages link to.
//
// A failed download marks the file failed in the registry and returns
// nil; the crawl continues. The error return is reserved for conditions
// that stop file work entirely: context cancellation and the test-mode
// file limit.
func (o *Orchestrator) Download(ctx context.Context, item model.WorkItem) error {
	if o.limit > 0 && o.fetched >= o.limit {
		return ErrFileLimitReached
	}

	if err := o.fetch(ctx, item); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.fail(item, err)
	}
	if o.progress != nil {
		o.progress()
	}

	// Politeness pause between downloads; the portal is a small shared
	// school server.
	if o.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.delay):
		}
	}
	return nil
}

// fetch performs the trigger-await-store sequence for one file.
func (o *Orchestrator) fetch(ctx context.Context, item model.WorkItem) error {
	before, err := o.watcher.Snapshot()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := o.trigger.TriggerDownload(ctx, item.RemoteKey); err != nil {
		return fmt.Errorf("failed to trigger download: %w", err)
	}

	dropped, err := o.watcher.Await(ctx, before, start)
	if err != nil {
		return err
	}

	name := storage.SanitizeFileName(item.Title, filepath.Ext(dropped))
	name = o.store.UniqueArtifactName(name)

	if err := o.store.MoveFile(dropped, filepath.Join(model.FilesDirName, name)); err != nil {
		return err
	}

	rec, ok := o.reg.File(item.RemoteKey)
	if !ok {
		return fmt.Errorf("file %q disappeared from the registry", item.RemoteKey)
	}
	if err := o.store.CreateAlias(rec.LocalID, name); err != nil {
		return err
	}

	size, err := o.store.ArtifactSize(name)
	if err != nil {
		return err
	}
	if err := o.reg.MarkFileDownloaded(item.RemoteKey, name, size); err != nil {
		return err
	}

	o.fetched++
	o.journal.Log("Téléchargé: %s (%s)", name, model.FormatSize(size))
	o.logger.Debug("file downloaded",
		"remote_key", item.RemoteKey, "stored_as", name, "size", size)
	return nil
}

// fail records a per-file failure without interrupting the run.
func (o *Orchestrator) fail(item model.WorkItem, cause error) {
	if err := o.reg.MarkFileFailed(item.RemoteKey, cause.Error()); err != nil {
		o.logger.Warn("could not record file failure",
			"remote_key", item.RemoteKey, "error", err)
	}
	o.journal.Log("ECHEC téléchargement: %s (id=%s): %v", item.Title, item.RemoteKey, cause)
	o.logger.Warn("file download failed",
		"remote_key", item.RemoteKey, "title", item.Title, "error", cause)
}
