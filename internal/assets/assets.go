package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// maxAssetSize caps one asset body. The portal's stylesheets and scripts
// are tens of kilobytes; anything larger is a misrouted response.
const maxAssetSize = 16 << 20

// fetchConcurrency bounds parallel asset fetches. Assets bypass the
// browser session, so a small burst is safe where page fetches are not.
const fetchConcurrency = 3

// Asset pairs a portal-relative source path with its location inside the
// mirror.
type Asset struct {
	// Remote is the path relative to the portal base, including the
	// cache-busting query the portal's pages carry.
	Remote string

	// Local is the mirror-relative destination path.
	Local string
}

// DefaultAssets is the portal's static surface: the two stylesheets, the
// two scripts, and the icon font every page references. The set is fixed
// because the portal software serves the same chrome to every class.
var DefaultAssets = []Asset{
	{Remote: "css/style.min.css?v=1202", Local: "assets/css/style.min.css"},
	{Remote: "css/icones.min.css?v=1200", Local: "assets/css/icones.min.css"},
	{Remote: "js/jquery.min.js", Local: "assets/js/jquery.min.js"},
	{Remote: "js/commun.min.js?v=1200", Local: "assets/js/commun.min.js"},
	{Remote: "fonts/icomoon.woff?1210", Local: "assets/fonts/icomoon.woff"},
}

// Mirror fetches the portal's static assets into the mirror's assets/
// tree. Assets are public and session-free, so they go through a plain
// HTTP client rather than the browser.
type Mirror struct {
	client  *http.Client
	baseURL string
	store   *storage.Store
	journal *journal.Journal
	logger  *slog.Logger
	assets  []Asset
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Mirror) {
		m.client = client
	}
}

// WithAssets overrides the asset list. Tests use it to point at a local
// server.
func WithAssets(assets []Asset) Option {
	return func(m *Mirror) {
		m.assets = assets
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// NewMirror creates a Mirror fetching relative to the given portal base
// URL (trailing slash included).
func NewMirror(baseURL string, store *storage.Store, jrn *journal.Journal, opts ...Option) *Mirror {
	m := &Mirror{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		store:   store,
		journal: jrn,
		logger:  slog.Default(),
		assets:  DefaultAssets,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch downloads every asset concurrently. A missing asset degrades the
// mirror's styling, not its content, so per-asset failures are journaled
// and counted rather than propagated; the error return covers only
// context cancellation.
func (m *Mirror) Fetch(ctx context.Context) (fetched, failed int, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	results := make([]error, len(m.assets))
	for i, asset := range m.assets {
		g.Go(func() error {
			results[i] = m.fetchOne(ctx, asset)
			if results[i] != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for i, asset := range m.assets {
		if results[i] != nil {
			failed++
			m.journal.Log("ECHEC asset: %s: %v", asset.Remote, results[i])
			m.logger.Warn("asset fetch failed", "asset", asset.Remote, "error", results[i])
			continue
		}
		fetched++
		m.journal.Log("Asset copié: %s", asset.Local)
	}
	return fetched, failed, nil
}

// fetchOne downloads a single asset into the mirror.
func (m *Mirror) fetchOne(ctx context.Context, asset Asset) error {
	url := m.baseURL + asset.Remote

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	return m.store.WriteBinary(localPath(asset.Local), body)
}

// localPath normalizes the mirror-relative destination to the platform
// separator.
func localPath(rel string) string {
	return path.Clean(strings.TrimPrefix(rel, "/"))
}
