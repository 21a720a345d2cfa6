package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoPortal is returned when no portal address is specified.
	// Provide the class portal as a positional argument or use --all
	// with a config file.
	ErrNoPortal = errors.New("no portal specified: provide a portal address or use --all")

	// ErrNoPortalsConfigured is returned when --all is used but the
	// config file names no portals.
	ErrNoPortalsConfigured = errors.New("--all requires portals in the configuration file")

	// ErrMissingCredentials is returned when the portal login or
	// password is absent. The portal serves only a login shell without
	// a session, so there is nothing to mirror anonymously.
	ErrMissingCredentials = errors.New("missing credentials: identifiant and motdepasse are required")

	// ErrInvalidNavigationTimeout is returned when the navigation
	// timeout is not positive.
	ErrInvalidNavigationTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrInvalidDownloadTimeout is returned when the download timeout
	// is not positive.
	ErrInvalidDownloadTimeout = errors.New("invalid download timeout: must be positive")

	// ErrInvalidDownloadDelay is returned when the download delay is
	// negative. Use 0 to disable pacing between downloads.
	ErrInvalidDownloadDelay = errors.New("invalid download delay: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidBatchConcurrency is returned when the batch concurrency
	// is not positive. A concurrency of zero would mirror nothing.
	ErrInvalidBatchConcurrency = errors.New("invalid batch concurrency: must be positive")
)
