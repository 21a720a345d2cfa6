package crawler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/download"
	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
	"github.com/cdp-tools/cdpmirror/internal/resolver"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// Root page labels recorded in the registry before anything is fetched.
const (
	indexTitle = "Accueil"
	docsTitle  = "Documents"
)

// Fetcher returns the rendered HTML of a portal URL. The browser session
// implements it; tests substitute a canned map.
type Fetcher interface {
	FetchRendered(ctx context.Context, url string) (string, error)
}

// Downloader settles one file work item. The download orchestrator
// implements it.
type Downloader interface {
	Download(ctx context.Context, item model.WorkItem) error
}

// Scheduler walks the portal breadth-first from the two root pages,
// handing each dequeued item to the resolver (pages) or the download
// orchestrator (files). Discovery order is document order within a page
// and FIFO across pages, so shallow directories complete before deep
// ones and a cancelled run still holds the most navigable part of the
// tree.
type Scheduler struct {
	portal     model.Portal
	fetcher    Fetcher
	downloader Downloader
	res        *resolver.Resolver
	reg        *registry.Registry
	store      *storage.Store
	journal    *journal.Journal
	logger     *slog.Logger

	delay       time.Duration
	maxMainDirs int
	maxSubpages int
	progress    func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDelay sets the politeness pause between page fetches.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithTestCaps bounds the crawl for dry runs: at most maxMainDirs
// top-level directories are entered and at most maxSubpages listing
// pages are fetched in total. The docs root counts toward the page cap;
// the landing page does not. Zero means unlimited.
func WithTestCaps(maxMainDirs, maxSubpages int) Option {
	return func(s *Scheduler) {
		s.maxMainDirs = maxMainDirs
		s.maxSubpages = maxSubpages
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithProgress registers a callback invoked after every settled page.
func WithProgress(fn func()) Option {
	return func(s *Scheduler) {
		s.progress = fn
	}
}

// New creates a Scheduler.
func New(portal model.Portal, fetcher Fetcher, downloader Downloader, res *resolver.Resolver, reg *registry.Registry, store *storage.Store, jrn *journal.Journal, opts ...Option) *Scheduler {
	s := &Scheduler{
		portal:     portal,
		fetcher:    fetcher,
		downloader: downloader,
		res:        res,
		reg:        reg,
		store:      store,
		journal:    jrn,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl walks the portal to exhaustion (or to the test caps). Page and
// file failures are recorded and skipped; the error return is reserved
// for context cancellation and a lost portal session.
func (s *Scheduler) Crawl(ctx context.Context) error {
	queue := s.seed()

	var mainDirs, subpages int
	var fileLimitHit bool

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := queue[0]
		queue = queue[1:]

		switch item.Kind {
		case model.FileWork:
			if fileLimitHit {
				continue
			}
			err := s.downloader.Download(ctx, item)
			if errors.Is(err, download.ErrFileLimitReached) {
				fileLimitHit = true
				s.journal.Log("Mode test: limite de fichiers atteinte, téléchargements suivants ignorés")
				continue
			}
			if err != nil {
				return err
			}

		case model.PageWork:
			if s.skipForCaps(item, &mainDirs, &subpages) {
				continue
			}
			work, err := s.fetchPage(ctx, item)
			if err != nil {
				return err
			}
			queue = append(queue, work...)
			if s.progress != nil {
				s.progress()
			}
			if s.delay > 0 && len(queue) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.delay):
				}
			}
		}
	}
	return nil
}

// seed registers the two root pages and returns them as the initial
// worklist, index first so the landing page is saved even when the crawl
// is cut short.
func (s *Scheduler) seed() []model.WorkItem {
	var queue []model.WorkItem
	if _, created := s.reg.ResolvePage(model.PageKeyIndex, indexTitle); created {
		queue = append(queue, model.WorkItem{Kind: model.PageWork, RemoteKey: model.PageKeyIndex, Title: indexTitle})
	}
	if _, created := s.reg.ResolvePage(model.PageKeyDocs, docsTitle); created {
		queue = append(queue, model.WorkItem{Kind: model.PageWork, RemoteKey: model.PageKeyDocs, Title: docsTitle})
	}
	return queue
}

// skipForCaps enforces the test-mode crawl bounds. Skipped pages stay
// pending in the registry and never reach the mapping files.
func (s *Scheduler) skipForCaps(item model.WorkItem, mainDirs, subpages *int) bool {
	// Only the landing page is exempt; the docs listing and every
	// directory page count toward the page cap.
	if item.RemoteKey == model.PageKeyIndex {
		return false
	}

	if s.maxMainDirs > 0 && item.SourceContext == model.PageKeyDocs {
		if *mainDirs >= s.maxMainDirs {
			s.journal.Log("Mode test: répertoire principal %q ignoré", item.Title)
			return true
		}
		*mainDirs++
	}

	if s.maxSubpages > 0 {
		if *subpages >= s.maxSubpages {
			s.journal.Log("Mode test: page %q ignorée (limite de pages)", item.Title)
			return true
		}
		*subpages++
	}
	return false
}

// fetchPage fetches, rewrites, and saves one page, returning the work
// its references discovered. Fetch and rewrite failures mark the page
// failed and return no work; only cancellation and a lost session
// propagate.
func (s *Scheduler) fetchPage(ctx context.Context, item model.WorkItem) ([]model.WorkItem, error) {
	url := s.pageURL(item.RemoteKey)

	body, err := s.fetcher.FetchRendered(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.failPage(item, err.Error())
		return nil, nil
	}

	if loggedOut(body) {
		s.failPage(item, "session expirée")
		return nil, ErrSessionLost
	}

	res, err := s.res.Rewrite(body, item.RemoteKey)
	if err != nil {
		s.failPage(item, err.Error())
		return nil, nil
	}

	rec, _ := s.reg.Page(item.RemoteKey)
	filename := model.PageFilename(rec.LocalID)
	if err := s.store.WriteText(filename, res.Body); err != nil {
		s.failPage(item, err.Error())
		return nil, nil
	}

	if err := s.reg.MarkPageFetched(item.RemoteKey); err != nil {
		s.logger.Warn("could not record page fetch", "remote_key", item.RemoteKey, "error", err)
	}

	s.journal.Log("Page sauvegardée: %s (%d liens, %d fichiers)",
		filename, res.Stats.PageRefs, res.Stats.FileRefs)
	s.logger.Debug("page fetched",
		"remote_key", item.RemoteKey, "file", filename,
		"new_work", len(res.Work))

	return res.Work, nil
}

// failPage records a per-page failure without interrupting the crawl.
func (s *Scheduler) failPage(item model.WorkItem, reason string) {
	if err := s.reg.MarkPageFailed(item.RemoteKey, reason); err != nil {
		s.logger.Warn("could not record page failure", "remote_key", item.RemoteKey, "error", err)
	}
	s.journal.Log("ECHEC page: %s (%s): %s", item.Title, item.RemoteKey, reason)
	s.logger.Warn("page fetch failed",
		"remote_key", item.RemoteKey, "title", item.Title, "reason", reason)
}

// pageURL maps a page remote key to its portal URL.
func (s *Scheduler) pageURL(remoteKey string) string {
	switch remoteKey {
	case model.PageKeyIndex:
		return s.portal.BaseURL()
	case model.PageKeyDocs:
		return s.portal.DocsURL()
	default:
		return s.portal.DirectoryURL(remoteKey)
	}
}

// loggedOut reports whether a rendered body shows the public shell: the
// connect icon present with no disconnect icon means the portal dropped
// the session and is serving the anonymous view.
func loggedOut(body string) bool {
	return strings.Contains(body, "icon-connexion") &&
		!strings.Contains(body, "icon-deconnexion")
}
