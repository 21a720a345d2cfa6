// Package storage owns the mirror's on-disk tree.
//
// # Overview
//
// The Store is the storage collaborator consumed by the crawl scheduler,
// the download orchestrator, and the mapping persister: it writes
// rewritten pages, moves downloaded artifacts into fichiers/, creates
// the stable numeric aliases that rewritten links resolve through, and
// mirrors static assets. No other component writes inside the mirror
// root.
//
// # Naming
//
// Downloaded artifacts are stored under a sanitized form of their
// display title (SanitizeFileName), with deterministic " (2)" style
// suffixes on collision. The stable alias fichiers/<id> is a relative
// symlink to the real name, falling back to a byte copy where symlinks
// are unavailable, so cross-references stay valid either way.
package storage
