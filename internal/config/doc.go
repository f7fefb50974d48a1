// Package config provides configuration structures and utilities for extlinks.
// It defines where the vault lives, which documents are indexed, how the
// link list is rendered and where state is persisted.
package config
