package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the behavior of the portal itself and the pacing a
// careful human operator would use; the portal is a small shared service
// and an aggressive mirror would degrade it for every class using it.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "cdpmirror"

	// DefaultNavigationTimeout bounds a single rendered page fetch.
	// The portal renders server-side and is normally fast; 30 seconds
	// covers slow sessions without letting one dead page stall the crawl.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds the wait for one file to land in the
	// drop directory. Matches the pacing the portal's own download
	// endpoint exhibits for multi-megabyte PDFs on a slow link.
	DefaultDownloadTimeout = 30 * time.Second

	// DefaultDownloadPollInterval is how often the drop directory is
	// observed while waiting for an artifact. One second keeps the poll
	// cheap while detecting completion promptly.
	DefaultDownloadPollInterval = 1 * time.Second

	// DefaultDownloadDelay is the politeness pause after each successful
	// file download. The download endpoint is session-gated and shared;
	// two seconds keeps the mirror indistinguishable from a patient user.
	DefaultDownloadDelay = 2 * time.Second

	// DefaultLoginWait bounds the wait for the disconnect icon to appear
	// after submitting the login form.
	DefaultLoginWait = 15 * time.Second

	// DefaultAssetTimeout bounds one static asset fetch. Assets are
	// small (CSS/JS/font) and served without a session.
	DefaultAssetTimeout = 10 * time.Second

	// DefaultBatchConcurrency is the number of portals mirrored
	// concurrently in --all mode. One by default: each portal gets its
	// own browser and drop directory, and parallel browsers multiply
	// memory use without helping a single shared uplink.
	DefaultBatchConcurrency = 1

	// Test-mode caps. A bounded run enters one top-level directory and
	// fetches at most ten listing pages (the docs root included) and
	// ten files, which yields a representative partial mirror.
	TestMaxMainDirs = 1
	TestMaxSubpages = 10
	TestMaxFiles    = 10

	// DefaultOutputDirName is the mirror directory created under the
	// user's home when no output dir is configured.
	DefaultOutputDirName = "cahier_prepa_offline"

	// TestOutputDirName is the separate mirror directory used by
	// bounded test runs, so a test never overwrites a full mirror.
	TestOutputDirName = "cahier_prepa_test"

	// JournalFileName is the run journal written inside the mirror root.
	JournalFileName = "mirror.log"

	// JournalMaxSizeMB caps one journal file before rotation. Full-site
	// runs journal one line per page and per file; 10MB is far above a
	// normal run and bounds the pathological case.
	JournalMaxSizeMB = 10

	// JournalMaxBackups is the number of rotated journal files kept.
	JournalMaxBackups = 3
)

// Config holds all configuration options for one mirror run.
// This struct is populated from CLI flags and the optional YAML config
// file, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, DownloadConfig) for simplicity. The number of
// options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// Portal is the raw portal address as given by the operator.
	// Accepted shapes: full URL, host-prefixed, or bare class name.
	Portal string

	// Identifiant is the portal login (usually an email address).
	Identifiant string

	// MotDePasse is the portal password.
	MotDePasse string

	// OutputDir is the mirror root. Empty means the default under the
	// user's home (DefaultOutputDirName, or TestOutputDirName in test mode).
	OutputDir string

	// DownloadDir is the browser's download drop directory. Empty means
	// a run-private temporary directory, which is strongly preferred:
	// the drop directory is the completion channel for downloads and
	// must not be shared with anything else writing files.
	DownloadDir string

	// TestMode bounds the run to TestMaxMainDirs top-level directories,
	// TestMaxSubpages subpages, and TestMaxFiles files.
	TestMode bool

	// Headless controls whether the browser runs without a window.
	// Disabled only for debugging login issues.
	Headless bool

	// NavigationTimeout bounds a single rendered page fetch.
	NavigationTimeout time.Duration

	// DownloadTimeout bounds the wait for one downloaded artifact.
	DownloadTimeout time.Duration

	// DownloadDelay is the politeness pause after each download.
	DownloadDelay time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONSummary enables a JSON run summary on stdout instead of the
	// human-readable console summary. Mutually exclusive with MarkdownReport.
	JSONSummary bool

	// MarkdownReport writes RAPPORT.md into the mirror root at the end
	// of the run. Mutually exclusive with JSONSummary.
	MarkdownReport bool

	// NoProgress disables the download progress bar even on a TTY.
	NoProgress bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .cdpmirror.yml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// Portals holds per-portal configurations loaded from the config
	// file. Populated by LoadConfigFile; used by mirror --all.
	Portals *File

	// All mirrors every portal named in the config file instead of a
	// single one.
	All bool

	// BatchConcurrency is the number of portals mirrored concurrently
	// in --all mode.
	BatchConcurrency int

	// DBDir is the directory path for the run-history SQLite database.
	// Defaults to the XDG data directory. Empty disables persistence.
	DBDir string

	// SaveToDB indicates whether to record the run in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, pacing).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
		DownloadTimeout:   DefaultDownloadTimeout,
		DownloadDelay:     DefaultDownloadDelay,
		BatchConcurrency:  DefaultBatchConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for cdpmirror.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/cdpmirror
// On macOS: ~/Library/Application Support/cdpmirror
// On Windows: %LOCALAPPDATA%\cdpmirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for cdpmirror.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the browser launches.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// Without a portal there is nothing to mirror. In --all mode the
	// portals come from the config file instead.
	if !c.All && c.Portal == "" {
		return ErrNoPortal
	}
	if c.All && (c.Portals == nil || len(c.Portals.Portals) == 0) {
		return ErrNoPortalsConfigured
	}

	// Credentials are required per portal; in single-portal mode they
	// must be present after merging flags and config file.
	if !c.All && (c.Identifiant == "" || c.MotDePasse == "") {
		return ErrMissingCredentials
	}

	// Zero or negative timeouts would fail every fetch immediately.
	if c.NavigationTimeout <= 0 {
		return ErrInvalidNavigationTimeout
	}
	if c.DownloadTimeout <= 0 {
		return ErrInvalidDownloadTimeout
	}

	// DownloadDelay must be non-negative; zero disables pacing.
	if c.DownloadDelay < 0 {
		return ErrInvalidDownloadDelay
	}

	// JSONSummary and MarkdownReport are mutually exclusive.
	if c.JSONSummary && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.BatchConcurrency <= 0 {
		return ErrInvalidBatchConcurrency
	}

	return nil
}
