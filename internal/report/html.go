package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nao1215/extlinks/internal/view"
	"github.com/nao1215/markdown"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

const htmlHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>External Links</title>
</head>
<body>
`

const htmlFooter = `</body>
</html>
`

// HTMLRenderer outputs the projection as a standalone HTML page.
//
// Design decision: The page is produced by converting the Markdown output
// with goldmark instead of a second template, so both formats always show
// the same content. Raw HTML passthrough is enabled because the Markdown
// uses <details> blocks.
type HTMLRenderer struct {
	baseWriter
	converter goldmark.Markdown
}

// NewHTMLRenderer creates an HTMLRenderer that outputs to the given writer.
func NewHTMLRenderer(output io.Writer) *HTMLRenderer {
	return &HTMLRenderer{
		baseWriter: newBaseWriter(output),
		converter: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
	}
}

// Render implements view.Renderer.
func (r *HTMLRenderer) Render(p view.Projection) error {
	var src bytes.Buffer
	md := markdown.NewMarkdown(&src)
	writeMarkdown(md, p)
	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to build markdown: %w", err)
	}

	var body bytes.Buffer
	if err := r.converter.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("failed to convert markdown to html: %w", err)
	}

	return r.writeString(htmlHeader + body.String() + htmlFooter)
}
