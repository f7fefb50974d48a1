// Package report renders the link projection in several output formats.
//
// This package contains renderers for:
//   - TextRenderer: a tree of documents and links for terminal display
//   - MarkdownRenderer: one collapsible section per document
//   - HTMLRenderer: the Markdown output converted to a standalone page
//   - JSONRenderer: the projection as JSON for tool integration
//
// Design decision: We separate rendering from the projection itself (which
// lives in the view package) so that new output formats never touch the
// cache or the synchronizer.
//
// Every renderer implements view.Renderer, so they can be composed with
// view.MultiRenderer for multi-destination output.
package report
