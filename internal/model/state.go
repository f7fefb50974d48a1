package model

import (
	"encoding/json"

	"github.com/nao1215/extlinks/internal/cache"
)

// State is the durable object saved between runs.
//
// The JSON layout is a single object:
//
//	{
//	  "excludePatterns": ["^https://example\\.com"],
//	  "excludePathRegex": "^private/",
//	  "linkCache": {"notes/a.md": ["https://go.dev"]}
//	}
//
// Missing fields take their defaults when loading.
type State struct {
	// Exclusions is what the user configured to skip.
	Exclusions Exclusions

	// LinkCache is what was found. Never nil after NewState or UnmarshalJSON.
	LinkCache *cache.LinkCache

	// Saved reports whether the state was read back from a store rather
	// than created from defaults. It is not itself persisted.
	Saved bool
}

// stateJSON mirrors the persisted layout.
type stateJSON struct {
	ExcludePatterns  []string         `json:"excludePatterns"`
	ExcludePathRegex string           `json:"excludePathRegex"`
	LinkCache        *cache.LinkCache `json:"linkCache"`
}

// NewState returns a State with every field at its default.
func NewState() *State {
	return &State{
		Exclusions: Exclusions{URLPatterns: []string{}},
		LinkCache:  cache.New(),
	}
}

// MarshalJSON implements json.Marshaler.
func (s *State) MarshalJSON() ([]byte, error) {
	patterns := s.Exclusions.URLPatterns
	if patterns == nil {
		patterns = []string{}
	}
	lc := s.LinkCache
	if lc == nil {
		lc = cache.New()
	}
	return json.Marshal(stateJSON{
		ExcludePatterns:  patterns,
		ExcludePathRegex: s.Exclusions.PathPattern,
		LinkCache:        lc,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// Fields absent from data keep their defaults.
func (s *State) UnmarshalJSON(data []byte) error {
	raw := stateJSON{
		ExcludePatterns: []string{},
		LinkCache:       cache.New(),
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ExcludePatterns == nil {
		raw.ExcludePatterns = []string{}
	}
	if raw.LinkCache == nil {
		raw.LinkCache = cache.New()
	}

	s.Exclusions = Exclusions{
		PathPattern: raw.ExcludePathRegex,
		URLPatterns: raw.ExcludePatterns,
	}
	s.LinkCache = raw.LinkCache
	return nil
}
