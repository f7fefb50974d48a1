// Package main provides the entry point for the extlinks CLI.
//
// extlinks keeps a live index of the external links in a vault of Markdown
// notes. It rescans the vault at startup, then follows file changes and
// updates only what changed.
//
// Usage:
//
//	extlinks scan ~/notes
//	extlinks watch ~/notes
//	extlinks exclude --url '^https://localhost' ~/notes
//
// See --help for all available options.
package main

func main() {
	Execute()
}
