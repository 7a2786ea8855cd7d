package parser

import (
	"regexp"
	"strings"
)

var caseLawHeaders = []string{
	"FACTS",
	"BACKGROUND",
	"PROCEDURAL HISTORY",
	"ISSUES",
	"ANALYSIS",
	"DISCUSSION",
	"CONCLUSION",
	"ORDER",
	"JUDGMENT",
}

var articleHeaders = []string{
	"ABSTRACT",
	"INTRODUCTION",
	"BACKGROUND",
	"METHODOLOGY",
	"ANALYSIS",
	"DISCUSSION",
	"CONCLUSION",
	"REFERENCES",
}

var citationPattern = regexp.MustCompile(`\(\d{4}\)`)

func parseCaseLaw(text string) Structure {
	return Structure{
		Sections: splitByHeaders(text, caseLawHeaders, "case_section"),
		Metadata: map[string]any{},
	}
}

func parseArticle(text string) Structure {
	citations := make([]string, 0)
	seen := map[string]bool{}
	for _, c := range citationPattern.FindAllString(text, -1) {
		if !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}
	return Structure{
		Sections: splitByHeaders(text, articleHeaders, "article_section"),
		Metadata: map[string]any{"citations": citations},
	}
}

// splitByHeaders starts a section at every line whose upper-cased form begins with
// one of headers. Lines before the first header are ignored, as are headers
// without content.
func splitByHeaders(text string, headers []string, kind string) []Section {
	var (
		sections []Section
		current  string
		body     []string
		open     bool
	)
	flush := func() {
		if open && len(body) > 0 {
			sections = append(sections, Section{
				Title:   current,
				Content: strings.TrimSpace(strings.Join(body, "\n")),
				Kind:    kind,
			})
		}
	}
	for _, line := range nonEmptyLines(text) {
		if matchesHeader(line, headers) {
			flush()
			current, body, open = line, nil, true
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

func matchesHeader(line string, headers []string) bool {
	upper := strings.ToUpper(line)
	for _, h := range headers {
		if strings.HasPrefix(upper, h) {
			return true
		}
	}
	return false
}
