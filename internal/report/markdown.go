package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/extlinks/internal/view"
	"github.com/nao1215/markdown"
)

// MarkdownRenderer outputs the projection in Markdown format.
//
// Design decision: Each document is a collapsible <details> block so a vault
// with hundreds of linked notes stays scannable; the summary table stays
// visible at the top.
type MarkdownRenderer struct {
	baseWriter
}

// NewMarkdownRenderer creates a MarkdownRenderer that outputs to the given writer.
func NewMarkdownRenderer(output io.Writer) *MarkdownRenderer {
	return &MarkdownRenderer{baseWriter: newBaseWriter(output)}
}

// Render implements view.Renderer.
func (r *MarkdownRenderer) Render(p view.Projection) error {
	md := markdown.NewMarkdown(r.output)
	writeMarkdown(md, p)
	return md.Build()
}

// writeMarkdown fills md with the projection.
func writeMarkdown(md *markdown.Markdown, p view.Projection) {
	md.H1("External Links")
	md.PlainText("")

	if p.IsEmpty() {
		md.Note(emptyMessage)
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Documents", "Links"},
		Rows: [][]string{
			{strconv.Itoa(p.Summary.Documents), strconv.Itoa(p.Summary.Links)},
		},
	})
	md.PlainText("")

	for _, g := range p.Groups {
		md.Details(g.Path, linkList(g.Links))
		md.PlainText("")
	}
}

// linkList formats links as a Markdown bullet list.
func linkList(links []string) string {
	var sb strings.Builder
	for _, link := range links {
		sb.WriteString("- ")
		sb.WriteString(link)
		sb.WriteString("\n")
	}
	return sb.String()
}
