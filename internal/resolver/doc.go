// Package resolver turns raw portal pages into mirror-local ones.
//
// # Overview
//
// The portal addresses everything through two session-gated endpoints:
// docs?rep=<id> for directory listings and download?id=<id> for files.
// The resolver walks a rendered page body, classifies every reference
// (internal navigation, file download, static asset, portal chrome,
// external), rewrites it to its local counterpart, and reports the
// pages and files seen for the first time as work items.
//
// # First sight
//
// Whether a reference is new comes back from the registry's resolve call
// itself, not from a separate lookup, so there is no window between
// check and create: a page linking to itself, or two pages linking to
// the same file, can never enqueue duplicate work.
//
// # Failure posture
//
// An endpoint-shaped reference whose identifier cannot be extracted is
// left exactly as it was, counted, and logged. One bad href never fails
// a page.
package resolver
