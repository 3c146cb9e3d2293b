// Package flowstore persists named workspace snapshots.
//
// # Overview
//
// A Snapshot wraps a workspace.Document with a name, a description and a
// version. Snapshots live in an embedded badger database, either on disk or
// in memory, keyed by name.
//
// # Versioning
//
// Save creates version 1 and fails if the name is taken. Update succeeds only
// when the caller's version equals the stored one, then increments it:
//
//	snap, _ := store.Get(ctx, "bench")
//	snap.Document = workspace.Export(registry.Modules())
//	if err := store.Update(ctx, snap); errors.Is(err, errors.ErrVersionConflict) {
//	    // someone saved in between; reload and retry
//	}
//
// The check and the write happen in one badger transaction.
//
// # Validation
//
// Snapshots are validated before every write: a non-empty name, unique
// window ids, and connections that refer to windows of the same document.
package flowstore
