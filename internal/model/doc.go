// Package model defines the core data structures used throughout cdpmirror.
//
// This package contains the following main types:
//   - Portal: A validated, normalized portal address
//   - PageRecord: One distinct logical navigation target on the portal
//   - FileRecord: One distinct downloadable artifact
//   - MappingSnapshot: The durable remote-to-local identity projection
//   - RunSummary: The end-of-run success/failure tally
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (registry, resolver, crawler, report) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for the mapping files
// and database storage.
package model
