package parser

import (
	"regexp"
	"strings"
)

var (
	articleBoundary = regexp.MustCompile(`Article \d+`)
	articleOrdinal  = regexp.MustCompile(`^Article (\d+)`)
	articleHeading  = regexp.MustCompile(`Article\s+(\d+)[.\s]+([^\n]+)`)
	chapterHeading  = regexp.MustCompile(`(CHAPTER|Chapter|SECTION|Section)\s+([IVXLCDM0-9]+)[.\s]+([^\n]+)`)

	outlineChapter = regexp.MustCompile(`^(?:CHAPTER|Chapter)\s+([IVXLCDM0-9]+)`)
	outlineSection = regexp.MustCompile(`^(?:SECTION|Section)\s+(\d+)`)
	outlineArticle = regexp.MustCompile(`^(?:ARTICLE|Article)\s+(\d+)`)
)

// SplitArticles cuts text before every "Article N". Text ahead of the first
// boundary is returned as the preamble and is not an article.
func SplitArticles(text string) (preamble string, articles []string) {
	bounds := articleBoundary.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return text, nil
	}
	preamble = text[:bounds[0][0]]
	for i, b := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		if chunk := strings.TrimSpace(text[b[0]:end]); chunk != "" {
			articles = append(articles, chunk)
		}
	}
	return preamble, articles
}

// ArticleNumber returns the ordinal of a chunk starting with "Article N", or UnknownNumber.
func ArticleNumber(chunk string) string {
	if m := articleOrdinal.FindStringSubmatch(chunk); m != nil {
		return m[1]
	}
	return UnknownNumber
}

func parseLaw(text string) Structure {
	preamble, articles := SplitArticles(text)

	sections := make([]Section, 0, len(articles))
	for _, a := range articles {
		sections = append(sections, Section{
			Content: a,
			Number:  ArticleNumber(a),
			Kind:    "article",
		})
	}
	if len(sections) == 0 {
		preamble = ""
	}

	headings := make([]map[string]string, 0)
	for _, m := range articleHeading.FindAllStringSubmatch(text, -1) {
		headings = append(headings, map[string]string{"number": m[1], "title": strings.TrimSpace(m[2])})
	}
	chapters := make([]map[string]string, 0)
	for _, m := range chapterHeading.FindAllStringSubmatch(text, -1) {
		chapters = append(chapters, map[string]string{
			"kind":   strings.ToLower(m[1]),
			"number": m[2],
			"title":  strings.TrimSpace(m[3]),
		})
	}

	return Structure{
		Preamble: preamble,
		Sections: sections,
		Outline:  buildOutline(text),
		Metadata: map[string]any{
			"articles": headings,
			"chapters": chapters,
		},
	}
}

// buildOutline nests articles under sections and sections under chapters.
// Nodes live in a flat slice and reference each other by index.
func buildOutline(text string) []Section {
	type node struct {
		sec      Section
		children []int
		parent   int
	}
	var nodes []node
	add := func(s Section, parent int) int {
		nodes = append(nodes, node{sec: s, parent: parent})
		idx := len(nodes) - 1
		if parent >= 0 {
			nodes[parent].children = append(nodes[parent].children, idx)
		}
		return idx
	}

	chapterIdx, sectionIdx, currentIdx := -1, -1, -1
	for _, line := range nonEmptyLines(text) {
		if m := outlineChapter.FindStringSubmatch(line); m != nil {
			chapterIdx = add(Section{Title: line, Number: m[1], Kind: "chapter"}, -1)
			sectionIdx = -1
			currentIdx = chapterIdx
			continue
		}
		if m := outlineSection.FindStringSubmatch(line); m != nil {
			sectionIdx = add(Section{Title: line, Number: m[1], Kind: "section"}, chapterIdx)
			currentIdx = sectionIdx
			continue
		}
		if m := outlineArticle.FindStringSubmatch(line); m != nil {
			parent := sectionIdx
			if parent < 0 {
				parent = chapterIdx
			}
			currentIdx = add(Section{Title: line, Number: m[1], Kind: "article"}, parent)
			continue
		}
		if currentIdx >= 0 {
			c := &nodes[currentIdx].sec
			if c.Content != "" {
				c.Content += "\n"
			}
			c.Content += line
		}
	}

	var build func(idx int) Section
	build = func(idx int) Section {
		s := nodes[idx].sec
		for _, child := range nodes[idx].children {
			s.Subsections = append(s.Subsections, build(child))
		}
		return s
	}
	var out []Section
	for i := range nodes {
		if nodes[i].parent < 0 {
			out = append(out, build(i))
		}
	}
	return out
}
