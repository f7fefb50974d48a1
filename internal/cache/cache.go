package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Entry is one cache row.
type Entry struct {
	// Path identifies the document. Slash-separated, relative to the store root.
	Path string `json:"path"`

	// Links are the external URLs in first-seen order. Never empty.
	Links []string `json:"links"`
}

// slot holds the links for a path together with its position.
type slot struct {
	seq   uint64
	links []string
}

// LinkCache maps document paths to their external links.
// The zero value is not usable; create one with New.
//
// LinkCache is not safe for concurrent use. The indexer package owns the
// cache and serializes access to it.
type LinkCache struct {
	slots map[string]*slot
	next  uint64
}

// New creates an empty LinkCache.
func New() *LinkCache {
	return &LinkCache{slots: make(map[string]*slot)}
}

// FromEntries creates a LinkCache holding entries in the given order.
// Entries with no links are skipped; a repeated path overwrites the earlier
// links but keeps the earlier position.
func FromEntries(entries []Entry) *LinkCache {
	c := New()
	for _, e := range entries {
		c.Set(e.Path, e.Links)
	}
	return c
}

// Get returns a copy of the links stored for path.
func (c *LinkCache) Get(path string) ([]string, bool) {
	s, ok := c.slots[path]
	if !ok {
		return nil, false
	}
	return slices.Clone(s.links), true
}

// Has reports whether path has an entry.
func (c *LinkCache) Has(path string) bool {
	_, ok := c.slots[path]
	return ok
}

// Set stores links for path, replacing whatever was there.
// An empty links slice deletes the entry instead, so the cache never holds
// a document without links. Set reports whether an entry exists afterwards.
func (c *LinkCache) Set(path string, links []string) bool {
	if len(links) == 0 {
		c.Delete(path)
		return false
	}
	if s, ok := c.slots[path]; ok {
		s.links = slices.Clone(links)
		return true
	}
	c.slots[path] = &slot{seq: c.next, links: slices.Clone(links)}
	c.next++
	return true
}

// Delete removes the entry for path. It is a no-op if the path is absent and
// reports whether an entry was removed.
func (c *LinkCache) Delete(path string) bool {
	if _, ok := c.slots[path]; !ok {
		return false
	}
	delete(c.slots, path)
	return true
}

// Rename moves the entry stored under oldPath to newPath without touching
// the links. The entry keeps its position. If oldPath has no entry, Rename
// does nothing and returns false. An entry already stored under newPath is
// replaced.
func (c *LinkCache) Rename(oldPath, newPath string) bool {
	s, ok := c.slots[oldPath]
	if !ok {
		return false
	}
	if oldPath == newPath {
		return true
	}
	delete(c.slots, oldPath)
	c.slots[newPath] = s
	return true
}

// Clear removes every entry.
func (c *LinkCache) Clear() {
	c.slots = make(map[string]*slot)
	c.next = 0
}

// Replace swaps the whole content of the cache for entries.
func (c *LinkCache) Replace(entries []Entry) {
	fresh := FromEntries(entries)
	c.slots = fresh.slots
	c.next = fresh.next
}

// Len returns the number of documents in the cache.
func (c *LinkCache) Len() int {
	return len(c.slots)
}

// LinkCount returns the total number of links across all documents.
// A URL present in two documents is counted twice.
func (c *LinkCache) LinkCount() int {
	n := 0
	for _, s := range c.slots {
		n += len(s.links)
	}
	return n
}

// Paths returns the cached paths in iteration order.
func (c *LinkCache) Paths() []string {
	return c.ordered()
}

// Entries returns a copy of every entry in iteration order.
func (c *LinkCache) Entries() []Entry {
	ordered := c.ordered()
	entries := make([]Entry, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, Entry{Path: p, Links: slices.Clone(c.slots[p].links)})
	}
	return entries
}

// Clone returns a deep copy of the cache, preserving order.
func (c *LinkCache) Clone() *LinkCache {
	return FromEntries(c.Entries())
}

// Equal reports whether both caches hold the same entries in the same order.
func (c *LinkCache) Equal(other *LinkCache) bool {
	if c.Len() != other.Len() {
		return false
	}
	a, b := c.Entries(), other.Entries()
	for i := range a {
		if a[i].Path != b[i].Path || !slices.Equal(a[i].Links, b[i].Links) {
			return false
		}
	}
	return true
}

// ordered returns the paths sorted by position.
func (c *LinkCache) ordered() []string {
	paths := make([]string, 0, len(c.slots))
	for p := range c.slots {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return c.slots[paths[i]].seq < c.slots[paths[j]].seq
	})
	return paths
}

// MarshalJSON encodes the cache as a JSON object whose keys appear in
// iteration order.
func (c *LinkCache) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range c.ordered() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		links, err := json.Marshal(c.slots[p].links)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(links)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// errNotObject is returned when the JSON value is not an object.
var errNotObject = errors.New("link cache: expected a JSON object")

// UnmarshalJSON decodes a JSON object of path to link list, keeping the
// key order of the document. A null value yields an empty cache.
func (c *LinkCache) UnmarshalJSON(data []byte) error {
	fresh := New()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = *fresh
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("link cache: unexpected key %v", tok)
		}
		var links []string
		if err := dec.Decode(&links); err != nil {
			return fmt.Errorf("link cache: entry %q: %w", path, err)
		}
		fresh.Set(path, links)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = *fresh
	return nil
}
