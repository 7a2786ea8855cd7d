package parser

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxTitleLineChars = 200

var strategies = map[DocumentType]Strategy{
	TypeLaw:        parseLaw,
	TypeRegulation: parseLaw,
	TypeCaseLaw:    parseCaseLaw,
	TypeContract:   parseContract,
	TypeArticle:    parseArticle,
	TypeOther:      parseGeneric,
}

// Parse selects the strategy for docType and builds the document tree. A text
// without recognizable structure yields a single section holding all of it.
func Parse(text string, docType DocumentType, filename string) *Document {
	strategy, ok := strategies[docType]
	if !ok {
		docType = TypeOther
		strategy = parseGeneric
	}
	st := strategy(text)

	titleSource := text
	if strings.TrimSpace(st.Preamble) != "" {
		titleSource = st.Preamble
	}
	title, _ := ExtractTitle(titleSource)
	if title == "" {
		title = titleFromFilename(filename)
	}

	if docType == TypeLaw || docType == TypeRegulation {
		for i := range st.Sections {
			st.Sections[i].Title = title + " - Article " + st.Sections[i].Number
		}
	}
	if len(st.Sections) == 0 && strings.TrimSpace(text) != "" {
		st.Sections = []Section{{
			Title:   title,
			Content: strings.TrimSpace(text),
			Kind:    "document",
		}}
	}

	meta := st.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	meta["structure_type"] = structureType(docType)
	meta["section_count"] = len(st.Sections)

	return &Document{
		Title:    title,
		Type:     docType,
		Preamble: strings.TrimSpace(st.Preamble),
		Sections: st.Sections,
		Outline:  st.Outline,
		Metadata: meta,
	}
}

// ExtractTitle takes the first run of non-empty lines up to a blank line. Lines after
// the first must be shorter than 200 characters. It returns the title and the
// remaining text.
func ExtractTitle(text string) (string, string) {
	lines := strings.Split(text, "\n")
	var titleLines []string
	contentStart := 0
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(titleLines) > 0 {
				break
			}
			continue
		}
		if len(titleLines) > 0 && utf8.RuneCountInString(line) >= maxTitleLineChars {
			break
		}
		titleLines = append(titleLines, line)
		contentStart = i + 1
	}
	title := strings.Join(titleLines, " ")
	if utf8.RuneCountInString(title) > maxTitleLineChars {
		title = string([]rune(title)[:maxTitleLineChars])
	}
	rest := strings.TrimSpace(strings.Join(lines[contentStart:], "\n"))
	return strings.TrimSpace(title), rest
}

func titleFromFilename(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" {
		base = ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return base
}

func structureType(t DocumentType) string {
	switch t {
	case TypeLaw, TypeRegulation:
		return "law_or_regulation"
	case TypeOther:
		return "generic"
	}
	return string(t)
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
