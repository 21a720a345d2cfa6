package browser

import "errors"

// Session errors, ordered by severity.
var (
	// ErrAuthFailed is returned when the portal login does not produce
	// a session (the disconnect icon never appears). Fatal: without a
	// session there is nothing to mirror.
	ErrAuthFailed = errors.New("browser: portal authentication failed")

	// ErrNavigationTimeout is returned when a rendered page fetch does
	// not complete within the navigation timeout. Recoverable at page
	// granularity: the page is marked failed and the crawl continues.
	ErrNavigationTimeout = errors.New("browser: navigation timed out")

	// ErrNotConnected is returned when a fetch is attempted before
	// Connect established the browser.
	ErrNotConnected = errors.New("browser: session not connected")
)
