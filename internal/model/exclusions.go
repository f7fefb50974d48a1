package model

import "slices"

// Exclusions holds the user-supplied exclusion patterns.
// Both fields are regular expressions in Go RE2 syntax.
//
// Design decision: We keep the raw strings here and compile them elsewhere
// (see the filter package). The raw form is what the user edits and what
// gets persisted; the compiled form only lives in memory.
type Exclusions struct {
	// PathPattern is matched against document paths. Empty excludes nothing.
	// The match is unanchored, so "^private/" is needed to exclude a folder.
	PathPattern string `json:"excludePathRegex" yaml:"excludePathRegex,omitempty"`

	// URLPatterns are matched against extracted URLs in order.
	// A URL matching any of them is dropped.
	URLPatterns []string `json:"excludePatterns" yaml:"excludePatterns,omitempty"`
}

// IsZero reports whether no exclusion is configured.
func (e Exclusions) IsZero() bool {
	return e.PathPattern == "" && len(e.URLPatterns) == 0
}

// Equal reports whether two exclusion sets are identical, including order.
func (e Exclusions) Equal(other Exclusions) bool {
	return e.PathPattern == other.PathPattern && slices.Equal(e.URLPatterns, other.URLPatterns)
}

// Clone returns a deep copy.
func (e Exclusions) Clone() Exclusions {
	return Exclusions{
		PathPattern: e.PathPattern,
		URLPatterns: slices.Clone(e.URLPatterns),
	}
}
