package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/extlinks/internal/view"
)

// JSONRenderer outputs the projection in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the projection is a small tree of strings and ints
// and the standard encoder gives stable field order.
type JSONRenderer struct {
	baseWriter

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string. Empty means compact output.
	indentString string
}

// JSONRendererOption configures a JSONRenderer.
type JSONRendererOption func(*JSONRenderer)

// WithIndent enables indented JSON output.
func WithIndent(prefix, indent string) JSONRendererOption {
	return func(r *JSONRenderer) {
		r.indentPrefix = prefix
		r.indentString = indent
	}
}

// WithPrettyPrint enables indented JSON with two spaces.
func WithPrettyPrint() JSONRendererOption {
	return WithIndent("", "  ")
}

// NewJSONRenderer creates a JSONRenderer that outputs to the given writer.
func NewJSONRenderer(output io.Writer, opts ...JSONRendererOption) *JSONRenderer {
	r := &JSONRenderer{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements view.Renderer. One JSON document is written per call,
// followed by a newline, so watch output is a stream of JSON lines when
// indentation is off.
func (r *JSONRenderer) Render(p view.Projection) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent(r.indentPrefix, r.indentString)
	return enc.Encode(p)
}
