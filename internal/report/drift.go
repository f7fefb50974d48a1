package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/extlinks/internal/cache"
	"github.com/pmezard/go-difflib/difflib"
)

// DriftReport returns a unified diff of the link cache before and after a
// rescan, or "" when nothing changed. It shows what changed in the vault
// while extlinks was not running.
func DriftReport(before, after *cache.LinkCache) (string, error) {
	if before == nil {
		before = cache.New()
	}
	if after == nil {
		after = cache.New()
	}
	if before.Equal(after) {
		return "", nil
	}

	u := difflib.UnifiedDiff{
		A:        cacheLines(before),
		B:        cacheLines(after),
		FromFile: "saved",
		ToFile:   "current",
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("failed to compute drift: %w", err)
	}
	return s, nil
}

// cacheLines flattens the cache into newline-terminated lines: each path
// followed by its links indented by two spaces.
//
// Entries are listed in path order so that a difference in insertion order
// alone never shows up as drift.
func cacheLines(c *cache.LinkCache) []string {
	entries := c.Entries()
	slices.SortFunc(entries, func(a, b cache.Entry) int {
		return strings.Compare(a.Path, b.Path)
	})

	lines := make([]string, 0, len(entries)+c.LinkCount())
	for _, e := range entries {
		lines = append(lines, e.Path+"\n")
		for _, link := range e.Links {
			lines = append(lines, "  "+link+"\n")
		}
	}
	return lines
}
