// Package log provides secure logging utilities for cdpmirror.
//
// # Overview
//
// The mirror runs with the operator's real portal credentials in memory,
// and verbose runs log every navigation and download. This package keeps
// those two facts compatible: it wraps the standard log/slog handlers with
// a masking layer so credentials and session material never reach a log
// sink, whatever log level is active.
//
// # Components
//
//   - SecureHandler: an slog.Handler wrapper that masks sensitive
//     attribute keys (identifiant, motdepasse, cookie, ...) and
//     sensitive-looking values before delegating to the wrapped handler.
//   - NewSecureLogger: convenience constructor producing a text logger
//     at LevelWarn (default) or LevelDebug (verbose).
//
// The diagnostic logger built here is distinct from the run journal
// (internal/journal): the journal is a produced artifact of the mirror,
// this logger is for the operator's terminal.
package log
