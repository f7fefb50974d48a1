package report

import (
	"fmt"
	"io"

	"github.com/disiqueira/gotree/v3"
	"github.com/nao1215/extlinks/internal/view"
)

// TextRenderer outputs the projection as a tree for terminal display.
//
//	External links: 2 documents, 3 links
//	├── a.md
//	│   ├── https://example.com/page
//	│   └── https://other.org
//	└── notes/b.md
//	    └── https://go.dev
type TextRenderer struct {
	baseWriter
}

// NewTextRenderer creates a TextRenderer that outputs to the given writer.
func NewTextRenderer(output io.Writer) *TextRenderer {
	return &TextRenderer{baseWriter: newBaseWriter(output)}
}

// Render implements view.Renderer.
func (r *TextRenderer) Render(p view.Projection) error {
	if p.IsEmpty() {
		return r.writeString(emptyMessage + "\n")
	}

	root := gotree.New(summaryLine(p.Summary))
	for _, g := range p.Groups {
		doc := root.Add(g.Path)
		for _, link := range g.Links {
			doc.Add(link)
		}
	}
	return r.writeString(root.Print())
}

// summaryLine returns the one-line totals heading.
func summaryLine(s view.Summary) string {
	return fmt.Sprintf("External links: %s, %s",
		plural(s.Documents, "document"),
		plural(s.Links, "link"),
	)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
