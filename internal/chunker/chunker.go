// Package chunker splits normalized text into overlapping windows for embedding.
package chunker

import "strings"

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk is a window of the source text. Start and End are rune offsets.
type Chunk struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Chunker splits at the coarsest separator that keeps pieces under the chunk size.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

type Option func(*Chunker)

func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator preference list. An empty string
// separator means a hard cut.
func WithSeparators(seps ...string) Option {
	return func(c *Chunker) {
		if len(seps) > 0 {
			c.separators = seps
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:       DefaultChunkSize,
		overlap:    DefaultOverlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 2
	}
	return c
}

type span struct{ start, end int }

// Split returns chunks in order. The same input and options always give the same chunks.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	pieces := c.splitSpan(runes, span{0, len(runes)}, c.separators)
	windows := c.merge(pieces)

	chunks := make([]Chunk, 0, len(windows))
	for _, w := range windows {
		body := string(runes[w.start:w.end])
		if strings.TrimSpace(body) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Ordinal: len(chunks),
			Text:    body,
			Start:   w.start,
			End:     w.end,
		})
	}
	return chunks
}

// splitSpan cuts s into contiguous pieces no longer than the chunk size.
// Separators stay attached to the piece before them so pieces tile the text.
func (c *Chunker) splitSpan(runes []rune, s span, seps []string) []span {
	if s.end-s.start <= c.size {
		return []span{s}
	}
	for i, sep := range seps {
		if sep == "" {
			return c.hardCut(s)
		}
		sepRunes := []rune(sep)
		cuts := findAll(runes[s.start:s.end], sepRunes)
		if len(cuts) == 0 {
			continue
		}
		var out []span
		prev := s.start
		for _, cut := range cuts {
			end := s.start + cut + len(sepRunes)
			if end > prev {
				out = append(out, c.splitSpan(runes, span{prev, end}, seps[i+1:])...)
			}
			prev = end
		}
		if prev < s.end {
			out = append(out, c.splitSpan(runes, span{prev, s.end}, seps[i+1:])...)
		}
		return out
	}
	return c.hardCut(s)
}

func (c *Chunker) hardCut(s span) []span {
	var out []span
	for start := s.start; start < s.end; start += c.size {
		end := start + c.size
		if end > s.end {
			end = s.end
		}
		out = append(out, span{start, end})
	}
	return out
}

// merge packs pieces greedily into windows and starts each following window
// with the trailing pieces that fit in the overlap.
func (c *Chunker) merge(pieces []span) []span {
	var windows []span
	i := 0
	for i < len(pieces) {
		j := i
		for j < len(pieces) && pieces[j].end-pieces[i].start <= c.size {
			j++
		}
		if j == i {
			j = i + 1
		}
		w := span{pieces[i].start, pieces[j-1].end}
		windows = append(windows, w)
		if j >= len(pieces) {
			break
		}

		k := j
		for k-1 > i && w.end-pieces[k-1].start <= c.overlap {
			k--
		}
		// the next window must reach past this one
		for k < j && pieces[j].end-pieces[k].start > c.size {
			k++
		}
		i = k
	}
	return windows
}

func findAll(hay, sep []rune) []int {
	var idx []int
	for i := 0; i+len(sep) <= len(hay); {
		if runesEqual(hay[i:i+len(sep)], sep) {
			idx = append(idx, i)
			i += len(sep)
			continue
		}
		i++
	}
	return idx
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Reconstruct joins chunks by their offsets, dropping the overlapping prefix of each.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	end := 0
	for _, ch := range chunks {
		runes := []rune(ch.Text)
		skip := end - ch.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		if ch.End > end {
			end = ch.End
		}
	}
	return b.String()
}

// Annotate returns one metadata map per chunk: a copy of docMeta plus the chunk
// ordinal, total chunk count and chunk text.
func Annotate(chunks []Chunk, docMeta map[string]any) []map[string]any {
	out := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		m := make(map[string]any, len(docMeta)+3)
		for k, v := range docMeta {
			m[k] = v
		}
		m["chunk"] = ch.Ordinal
		m["total_chunks"] = len(chunks)
		m["text"] = ch.Text
		out[i] = m
	}
	return out
}

// Texts returns the chunk bodies in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}
