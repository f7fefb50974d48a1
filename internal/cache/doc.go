// Package cache provides LinkCache, the ordered mapping from document path
// to the external links found in that document.
//
// The cache is a lazily maintained index, not a mirror of the document store:
// a path is present only while its document exists, passes the path filter
// and contains at least one non-excluded external link. An entry never holds
// an empty link list.
//
// Iteration order is the insertion order of the path key. Updating an
// existing key keeps its position and renaming a key keeps the position of
// the old key, so a display built from the cache does not jump around while
// the user edits documents.
package cache
