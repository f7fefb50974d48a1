// Package database provides SQLite-based storage for extlinks state.
//
// StateDB stores:
//   - the exclusion settings as key/value rows
//   - the link cache, one row per document, with its insertion position
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of a flat
// file for the default backend because:
// 1. Saving replaces settings and cache in one transaction
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode keeps a concurrent `extlinks list` from blocking a running
// `extlinks watch`
//
// The JSON file backend in package state remains available for users who
// want a human-readable state file.
package database
