// Package browser drives the headless browser session against the
// portal.
//
// # Overview
//
// The portal renders its document listings server-side behind a login
// form and serves files through a session-gated download endpoint, so
// the mirror speaks to it the way a student does: through a real
// browser. This package wraps go-rod with the three operations the core
// needs (Login, FetchRendered, TriggerDownload) and nothing else.
// Download completion is deliberately out of scope here: the browser
// drops files into a session-private directory and the download
// orchestrator observes that directory.
//
// # Errors
//
// ErrAuthFailed is fatal for the run; ErrNavigationTimeout is
// recoverable at page granularity. TriggerDownload never fails
// meaningfully: the navigation abort it produces is the download
// starting.
package browser
