// Package extract finds external http(s) links in document text.
//
// Two syntactic forms are recognized:
//   - Markdown links, [label](https://example.com), where only the URL is kept
//   - Bare URLs such as https://example.com anywhere in the text
//
// A URL starts with http:// or https:// and runs until whitespace or a
// closing parenthesis. Extraction is pure: no state and no I/O.
package extract
