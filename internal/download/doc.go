// Package download stores portal files fetched through the browser's
// download pipeline.
//
// # Overview
//
// The portal's download endpoint is session-gated and answers with a
// Content-Disposition attachment, so files cannot be streamed with a
// plain HTTP client: the browser downloads them into a drop directory
// and this package observes that directory to learn when a file is
// complete.
//
// # Components
//
//   - Watcher: before-set snapshot plus polling of the drop directory,
//     skipping in-progress partial files, bounded by the download
//     timeout.
//   - Orchestrator: the serialized trigger-await-store loop. One
//     download in flight at a time; each settled artifact is moved into
//     fichiers/ under its sanitized display name and aliased by its
//     stable local id.
//
// A download failure is terminal for that file only: the file is marked
// failed in the registry, listed in the final report, and the run goes
// on.
package download
