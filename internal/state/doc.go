// Package state persists the exclusion settings and the link cache between
// runs.
//
// Two backends implement Store: FileStore keeps a single JSON object on
// disk, and database.StateDB keeps the same data in SQLite. Both load a
// missing store as the default state.
package state
