// Package filter compiles exclusion patterns and evaluates them.
//
// Patterns are compiled once per configuration change and reused for every
// extraction. A malformed pattern fails fast with a ConfigError; nothing is
// applied partially.
package filter
