package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	mainSection        = "MAIN"
	maxHeaderLineChars = 100
)

// parseGeneric treats short all-caps lines as headers. Content before the first
// header is collected under MAIN.
func parseGeneric(text string) Structure {
	var (
		sections []Section
		current  string
		body     []string
	)
	flush := func() {
		if current != "" && len(body) > 0 {
			sections = append(sections, Section{
				Title:   current,
				Content: strings.TrimSpace(strings.Join(body, "\n")),
				Kind:    "section",
			})
		}
	}
	for _, line := range nonEmptyLines(text) {
		if isAllCaps(line) && utf8.RuneCountInString(line) < maxHeaderLineChars {
			flush()
			current, body = line, nil
			continue
		}
		if current == "" {
			current = mainSection
		}
		body = append(body, line)
	}
	flush()
	return Structure{Sections: sections, Metadata: map[string]any{}}
}

// isAllCaps reports whether s has at least one letter and no lower-case letters.
func isAllCaps(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}
