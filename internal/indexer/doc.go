// Package indexer keeps the link cache in sync with a document store.
//
// The Synchronizer owns the cache and the compiled exclusion rules. It
// performs a full rescan at startup and whenever the exclusion settings
// change, and otherwise applies the smallest incremental operation for each
// change event:
//
//	created, modified -> UpdateDocument (one read, one extraction)
//	deleted           -> RemoveDocument (no I/O)
//	renamed           -> RenameDocument (no I/O, links moved unchanged)
//
// Design decision: every operation holds an exclusive lock for its whole
// duration, including the render notification. A full rescan reads documents
// concurrently but commits the new cache in a single swap, so an incremental
// update never observes a half-built cache.
package indexer
