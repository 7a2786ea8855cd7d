package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var htmlSkipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"noscript": true,
	"template": true,
}

var htmlBlockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true, "hr": true,
}

// extractHTML walks the token stream and keeps visible text.
func extractHTML(src string) (string, error) {
	tokenizer := html.NewTokenizer(strings.NewReader(src))
	var (
		out  strings.Builder
		skip int
	)
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return "", fmt.Errorf("%w: html: %v", ErrExtractionFailure, err)
			}
			return tidyLines(out.String()), nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if htmlSkipElements[tag] && tt == html.StartTagToken {
				skip++
			}
			if htmlBlockElements[tag] {
				out.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if htmlSkipElements[tag] && skip > 0 {
				skip--
			}
			if htmlBlockElements[tag] {
				out.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				// Text() already unescapes entities
				out.Write(tokenizer.Text())
			}
		}
	}
}

// tidyLines trims each line and collapses runs of blank lines into one.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		blank = false
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
