// Package store provides the document store consumed by the indexer.
//
// A store exposes two capabilities:
//   - Reader: enumerate documents and read their content
//   - Watcher: a stream of change events (created, modified, deleted, renamed)
//
// Two implementations are provided. Vault is backed by a directory on disk
// and watches it with fsnotify. Memory keeps documents in memory and is used
// by tests and by callers embedding extlinks in another program.
//
// Paths are slash-separated, relative to the store root and normalized to
// Unicode NFC so that the same document always has the same key regardless of
// the filesystem's normalization (macOS reports NFD names).
package store
