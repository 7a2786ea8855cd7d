// Package preprocess normalizes extracted text before parsing and chunking.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	urlPattern      = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	horizontalSpace = regexp.MustCompile(`[\t\p{Zs}]+`)
	noiseLine       = regexp.MustCompile(`^[\s.,;:!?]*$`)
	sentenceEnd     = regexp.MustCompile(`[.!?](?:\s|$)`)
)

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 3

// Options controls optional normalization steps.
type Options struct {
	StripURLs bool
}

// Normalize applies NFKC, strips control characters and optionally URLs, collapses
// horizontal whitespace and drops lines holding only punctuation. Line breaks are
// preserved so later stages can find paragraph and article boundaries.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string, opts Options) string {
	out := pass(text, opts)
	// removing characters can put a combining mark next to a new base, so
	// repeat until the output is stable
	for i := 1; i < maxPasses; i++ {
		next := pass(out, opts)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(text string, opts Options) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = norm.NFKC.String(text)
	if opts.StripURLs {
		text = urlPattern.ReplaceAllString(text, "")
	}
	text = horizontalSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if noiseLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Summary returns leading sentences of text up to maxChars runes. A first sentence
// longer than maxChars is cut at a word boundary.
func Summary(text string, maxChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	var b strings.Builder
	rest := text
	for rest != "" {
		loc := sentenceEnd.FindStringIndex(rest)
		end := len(rest)
		if loc != nil {
			end = loc[0] + 1
		}
		sentence := strings.TrimSpace(rest[:end])
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(sentence)+1 > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		rest = strings.TrimSpace(rest[end:])
	}
	if b.Len() > 0 {
		return b.String()
	}

	runes := []rune(text)[:maxChars]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
