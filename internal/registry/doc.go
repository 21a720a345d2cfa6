// Package registry implements the identity registry, the single source of
// truth for "have we already handled this remote thing".
//
// # Overview
//
// The portal addresses pages and files through opaque numeric ids
// (docs?rep=<id>, download?id=<id>). The registry owns the mapping from
// those remote keys to stable local identities and to lifecycle state.
// Every other component asks the registry before acting: the resolver to
// rewrite references and detect first sight, the scheduler to dedup page
// fetches, the orchestrator to dedup downloads.
//
// # Identity scheme
//
// Local ids are derived deterministically from remote keys, not from
// arrival order, so the same portal produces the same local names on
// separate runs. File identity is two-part: a stable symbolic name equal
// to the remote key, plus the real filename recorded after download.
//
// # Invariants
//
//   - A remote key resolves to the same local id forever (idempotence).
//   - No two distinct remote keys share a local id within a category.
//   - Status transitions to a terminal state exactly once; a second
//     terminal transition is a programming fault, reported loudly.
//   - Records are never deleted.
//
// All operations are safe for concurrent use; resolve and mark operations
// are serialized so two callers can never mint different local ids for the
// same remote key.
package registry
