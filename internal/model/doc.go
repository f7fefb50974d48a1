// Package model defines the data structures shared by extlinks packages.
//
// This package contains:
//   - Exclusions: the raw, user-edited exclusion patterns
//   - State: the object persisted between runs (exclusions + link cache)
//   - ContentReadError and PersistenceError: recoverable error kinds
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The filter, indexer, state and database packages all need
// these types, so centralizing them prevents import cycles.
package model
