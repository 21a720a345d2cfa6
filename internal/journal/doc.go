// Package journal writes the mirror's run journal.
//
// # Overview
//
// Every run produces mirror.log inside the mirror root: timestamped
// lines for the connection, each saved page, each discovered file, and
// each download result, plus section banners between phases. The journal
// exists so a failed file can be retried by hand later with full context
// (remote key, display name, timestamp); it is an output of the mirror,
// not an operator diagnostic channel.
//
// The sink rotates by size (lumberjack) so unbounded full-site runs
// cannot fill the disk, and can be tee'd to stdout for live runs.
package journal
