package extract

import (
	"regexp"

	"github.com/nao1215/extlinks/internal/filter"
)

var (
	// markdownLinkPattern matches [label](URL) and captures URL.
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^\s)]+)\)`)

	// bareURLPattern matches a URL anywhere in the text.
	bareURLPattern = regexp.MustCompile(`https?://[^\s)]+`)
)

// Links returns the distinct external URLs in content, in order of first
// occurrence, minus those excluded by rules. Markdown links are collected
// before bare URLs; a bare URL equal to one already collected is skipped.
// A nil rules excludes nothing. The result is nil when nothing is found.
func Links(content string, rules *filter.Rules) []string {
	if content == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var candidates []string
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		candidates = append(candidates, u)
	}

	for _, m := range markdownLinkPattern.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, u := range bareURLPattern.FindAllString(content, -1) {
		add(u)
	}

	var links []string
	for _, u := range candidates {
		if rules.URLExcluded(u) {
			continue
		}
		links = append(links, u)
	}
	return links
}
