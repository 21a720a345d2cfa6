// Package database persists the run history.
//
// # Overview
//
// Each mirror run writes one row into runs plus its terminal page and
// file records and the registry's event stream. The history answers two
// operator questions: "when did I last mirror this portal and how did it
// go" (ListRuns) and "what changed on the portal between these two runs"
// (DiffRuns, keyed by the portal's stable remote file ids).
//
// The database lives in one SQLite file under the XDG data directory;
// deleting it loses nothing but history.
package database
