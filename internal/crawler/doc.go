// Package crawler schedules the portal walk.
//
// # Overview
//
// The crawl starts from the landing page and the document listing, and
// proceeds breadth-first over the directory tree: each saved page's
// rewritten references yield the next pages to fetch and files to
// download, in document order, deduplicated by the identity registry's
// first-sight flag. Downloads are delegated to the download
// orchestrator and remain strictly serialized.
//
// Failures are local by default: a page that cannot be fetched or
// rewritten is marked failed and the walk continues. Two conditions
// abort the walk, cancellation and a lost portal session, because
// nothing useful can be mirrored past either.
//
// Test mode bounds the walk (first top-level directory, a handful of
// pages and files) so an operator can validate credentials and output
// layout without pulling a full class archive.
package crawler
