package view

import (
	"errors"

	"github.com/nao1215/extlinks/internal/cache"
)

// Group is the links of one document.
type Group struct {
	Path  string   `json:"path"`
	Links []string `json:"links"`
}

// Summary holds display-only totals. It is derived, never persisted.
type Summary struct {
	// Documents is the number of documents with at least one link.
	Documents int `json:"documents"`

	// Links is the sum of per-document link counts.
	Links int `json:"links"`
}

// Projection is the render-ready form of the cache.
type Projection struct {
	// Groups follow the cache's iteration order.
	Groups []Group `json:"groups"`

	Summary Summary `json:"summary"`
}

// IsEmpty reports whether there is nothing to show.
func (p Projection) IsEmpty() bool {
	return len(p.Groups) == 0
}

// Project builds a Projection from c. A nil cache projects as empty.
func Project(c *cache.LinkCache) Projection {
	if c == nil {
		return Projection{Groups: []Group{}}
	}

	entries := c.Entries()
	p := Projection{Groups: make([]Group, 0, len(entries))}
	for _, e := range entries {
		p.Groups = append(p.Groups, Group{Path: e.Path, Links: e.Links})
		p.Summary.Links += len(e.Links)
	}
	p.Summary.Documents = len(p.Groups)
	return p
}

// Renderer presents a projection. It is called after every cache change.
type Renderer interface {
	Render(p Projection) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(p Projection) error

// Render implements Renderer.
func (f RendererFunc) Render(p Projection) error {
	return f(p)
}

// MultiRenderer renders to several renderers. Every renderer is called even
// if an earlier one fails; the errors are joined.
type MultiRenderer struct {
	renderers []Renderer
}

// NewMultiRenderer creates a Renderer that fans out to renderers.
func NewMultiRenderer(renderers ...Renderer) *MultiRenderer {
	return &MultiRenderer{renderers: renderers}
}

// Render implements Renderer.
func (m *MultiRenderer) Render(p Projection) error {
	var errs []error
	for _, r := range m.renderers {
		if err := r.Render(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Renderer that does nothing.
var Discard Renderer = RendererFunc(func(Projection) error { return nil })
