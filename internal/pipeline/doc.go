// Package pipeline sequences the phases of a mirror run.
//
// # Overview
//
// One run is connect, crawl, assets, mappings, report, history, executed
// in order against the shared Run state. The tail of the sequence runs
// even when the crawl aborts, so the mirror on disk is always described
// by its mapping files and a cancelled run still leaves a consistent
// partial archive.
//
// # Components
//
//   - Step / Pipeline: the ordered phase executor
//   - Run: the shared state one run accumulates
//   - BatchProcessor: mirrors several portals from one invocation,
//     isolating each portal's failures
package pipeline
