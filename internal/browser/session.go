package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// downloadTriggerTimeout bounds the navigation used to fire a download.
// Hitting the download endpoint is not a page load: the browser aborts
// the navigation once the download starts, so a short budget is enough
// and the resulting error is expected.
const downloadTriggerTimeout = 5 * time.Second

// Credentials are the portal login form values.
type Credentials struct {
	// Identifiant is the login field (usually an email address).
	Identifiant string

	// MotDePasse is the password field.
	MotDePasse string
}

// Session drives one headless browser against one portal. It is the
// session/browser collaborator consumed by the crawl scheduler and the
// download orchestrator: login, rendered page fetch, and fire-and-forget
// download trigger. Download completion is observed externally through
// the drop directory; the session only points the browser at the
// endpoint.
type Session struct {
	portal      model.Portal
	downloadDir string
	headless    bool
	navTimeout  time.Duration
	loginWait   time.Duration
	logger      *slog.Logger

	browser *rod.Browser
	page    *rod.Page
}

// Option configures a Session.
type Option func(*Session)

// WithHeadless controls whether the browser runs without a window.
// Headed mode exists for debugging login issues.
func WithHeadless(headless bool) Option {
	return func(s *Session) {
		s.headless = headless
	}
}

// WithNavigationTimeout bounds a single rendered page fetch.
func WithNavigationTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.navTimeout = d
	}
}

// WithLoginWait bounds the wait for the disconnect icon after
// submitting the login form.
func WithLoginWait(d time.Duration) Option {
	return func(s *Session) {
		s.loginWait = d
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session for the given portal. The browser is not
// launched until Connect.
//
// downloadDir is the drop directory the browser saves downloads into; it
// must be private to this session because download completion is
// detected by observing its contents.
func NewSession(portal model.Portal, downloadDir string, opts ...Option) (*Session, error) {
	if portal.IsZero() {
		return nil, fmt.Errorf("browser: portal is required")
	}
	if downloadDir == "" {
		return nil, fmt.Errorf("browser: download directory is required")
	}

	s := &Session{
		portal:      portal,
		downloadDir: downloadDir,
		headless:    true,
		navTimeout:  30 * time.Second,
		loginWait:   15 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect launches the browser, connects to it, and routes downloads
// into the drop directory.
func (s *Session) Connect(ctx context.Context) error {
	l := launcher.New().Headless(s.headless)
	// The portal fronts through ordinary TLS, but school proxies with
	// interception certificates are common enough to tolerate.
	l = l.Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	// Route downloads to the session-private drop directory without
	// prompting; the orchestrator watches that directory for completion.
	err = proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: s.downloadDir,
	}.Call(browser)
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("failed to configure download directory: %w", err)
	}

	s.logger.Debug("browser connected", "portal", s.portal.String(), "headless", s.headless)
	return nil
}

// Login opens the portal, clicks the connect icon, fills the login
// form, submits it, and waits for the disconnect icon that marks an
// established session. Returns ErrAuthFailed when the icon never
// appears within the login wait budget.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	if s.page == nil {
		return ErrNotConnected
	}

	page := s.page.Context(ctx).Timeout(s.navTimeout)

	if err := page.Navigate(s.portal.BaseURL()); err != nil {
		return fmt.Errorf("%w: opening portal: %v", ErrAuthFailed, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: loading portal: %v", ErrAuthFailed, err)
	}

	connect, err := page.Element(".icon-connexion")
	if err != nil {
		return fmt.Errorf("%w: connect icon not found: %v", ErrAuthFailed, err)
	}
	if err := connect.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: clicking connect icon: %v", ErrAuthFailed, err)
	}

	login, err := s.findField(page, `input[name="identifiant"]`, "#identifiant", `input[type="text"]`)
	if err != nil {
		return fmt.Errorf("%w: login field not found: %v", ErrAuthFailed, err)
	}
	password, err := s.findField(page, `input[name="motdepasse"]`, "#motdepasse", `input[type="password"]`)
	if err != nil {
		return fmt.Errorf("%w: password field not found: %v", ErrAuthFailed, err)
	}

	if err := login.Input(creds.Identifiant); err != nil {
		return fmt.Errorf("%w: filling login: %v", ErrAuthFailed, err)
	}
	if err := password.Input(creds.MotDePasse); err != nil {
		return fmt.Errorf("%w: filling password: %v", ErrAuthFailed, err)
	}

	if _, err := password.Eval(`() => this.form.submit()`); err != nil {
		return fmt.Errorf("%w: submitting login form: %v", ErrAuthFailed, err)
	}

	// Success marker: the disconnect icon replaces the connect icon.
	if _, err := page.Timeout(s.loginWait).Element(".icon-deconnexion"); err != nil {
		return fmt.Errorf("%w: disconnect icon never appeared (check credentials)", ErrAuthFailed)
	}

	s.logger.Debug("portal session established", "portal", s.portal.String())
	return nil
}

// findField tries a list of selectors in order, matching the portal's
// form anatomy first and falling back to input types.
func (s *Session) findField(page *rod.Page, selectors ...string) (*rod.Element, error) {
	var lastErr error
	for _, sel := range selectors {
		el, err := page.Element(sel)
		if err == nil {
			return el, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// FetchRendered navigates to the URL, waits for the render to settle,
// and returns the page's HTML. Any navigation failure is reported as
// ErrNavigationTimeout: from the scheduler's point of view every fetch
// failure is recoverable at page granularity.
func (s *Session) FetchRendered(ctx context.Context, url string) (string, error) {
	if s.page == nil {
		return "", ErrNotConnected
	}

	page := s.page.Context(ctx).Timeout(s.navTimeout)

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}

	body, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}
	return body, nil
}

// TriggerDownload points the browser at the download endpoint for the
// given file key and returns without waiting: the endpoint answers with
// an attachment, the browser aborts the navigation and streams the file
// into the drop directory. Completion is observed there by the caller.
func (s *Session) TriggerDownload(ctx context.Context, fileRemoteKey string) error {
	if s.page == nil {
		return ErrNotConnected
	}

	page := s.page.Context(ctx).Timeout(downloadTriggerTimeout)

	// The navigation "fails" by design once the download takes over;
	// the error carries no signal, so it is logged and dropped.
	if err := page.Navigate(s.portal.DownloadURL(fileRemoteKey)); err != nil {
		s.logger.Debug("download navigation aborted (expected)",
			"file", fileRemoteKey, "error", err)
	}
	return nil
}

// Close shuts the browser down. Safe to call when Connect never ran.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}
