package report

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/nao1215/extlinks/internal/view"
)

// Output formats accepted by NewRenderer.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// emptyMessage is shown when no document has an external link.
const emptyMessage = "No external links found."

// ErrUnknownFormat is returned by NewRenderer for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatMarkdown, FormatHTML, FormatJSON}
}

// IsFormat reports whether format is supported.
func IsFormat(format string) bool {
	return slices.Contains(Formats(), format)
}

// NewRenderer returns the renderer for format writing to output.
func NewRenderer(format string, output io.Writer) (view.Renderer, error) {
	switch format {
	case FormatText:
		return NewTextRenderer(output), nil
	case FormatMarkdown:
		return NewMarkdownRenderer(output), nil
	case FormatHTML:
		return NewHTMLRenderer(output), nil
	case FormatJSON:
		return NewJSONRenderer(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownFormat, format, Formats())
	}
}

// baseWriter provides common functionality for renderers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// writeString writes s to the output.
func (b baseWriter) writeString(s string) error {
	_, err := io.WriteString(b.output, s)
	return err
}
