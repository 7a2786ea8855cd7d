package parser

import (
	"regexp"
	"strings"
)

var (
	clausePattern = regexp.MustCompile(`(\d+\.|\([a-z]\)|\([0-9]\))\s+([^\n]+)`)
	datePattern   = regexp.MustCompile(`(?i)(?:dated|effective|as of).*?(\d{1,2}(?:st|nd|rd|th)?\s+(?:January|February|March|April|May|June|July|August|September|October|November|December),?\s+\d{4})`)
	partyPattern  = regexp.MustCompile(`(?i)(?:between|party of the first part|party of the second part)\s+([^,\n]+)`)
)

func parseContract(text string) Structure {
	var sections []Section
	for _, m := range clausePattern.FindAllStringSubmatch(text, -1) {
		sections = append(sections, Section{
			Title:   strings.TrimSpace(m[0]),
			Content: strings.TrimSpace(m[2]),
			Number:  m[1],
			Kind:    "clause",
		})
	}

	dates := make([]string, 0)
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		dates = append(dates, m[1])
	}
	parties := make([]string, 0)
	for _, m := range partyPattern.FindAllStringSubmatch(text, -1) {
		parties = append(parties, strings.TrimSpace(m[1]))
	}

	return Structure{
		Sections: sections,
		Metadata: map[string]any{
			"clause_count": len(sections),
			"dates":        dates,
			"parties":      parties,
		},
	}
}
