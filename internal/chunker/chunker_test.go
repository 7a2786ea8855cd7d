package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legalText(articles int) string {
	var b strings.Builder
	for i := 1; i <= articles; i++ {
		fmt.Fprintf(&b, "Article %d\n", i)
		for p := 0; p < 3; p++ {
			b.WriteString("The obligor shall compensate the damage caused by the breach of contract unless it proves force majeure. ")
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func TestShortTextSingleChunk(t *testing.T) {
	chunks := New().Split("Article 1 short")
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Ordinal: 0, Text: "Article 1 short", Start: 0, End: 15}, chunks[0])
	assert.Empty(t, New().Split(""))
}

func TestChunksRespectSizeAndReconstruct(t *testing.T) {
	text := legalText(20)
	c := New(WithChunkSize(300), WithOverlap(50))
	chunks := c.Split(text)

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Ordinal)
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 300)
		assert.Equal(t, ch.End-ch.Start, utf8.RuneCountInString(ch.Text))
	}
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestOverlapBetweenNeighbours(t *testing.T) {
	text := legalText(10)
	chunks := New(WithChunkSize(200), WithOverlap(60)).Split(text)

	require.Greater(t, len(chunks), 2)
	overlapped := 0
	for i := 1; i < len(chunks); i++ {
		gap := chunks[i-1].End - chunks[i].Start
		assert.GreaterOrEqual(t, gap, 0)
		assert.LessOrEqual(t, gap, 60)
		if gap > 0 {
			overlapped++
		}
	}
	assert.Positive(t, overlapped)
}

func TestPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 30) // 150 runes
	text := para + "\n\n" + para + "\n\n" + para
	chunks := New(WithChunkSize(160), WithOverlap(0)).Split(text)

	require.Len(t, chunks, 3)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestHardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks := New().Split(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, len(chunks[0].Text))
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestDeterministic(t *testing.T) {
	text := legalText(15)
	a := New().Split(text)
	b := New().Split(text)
	assert.Equal(t, a, b)
}

func TestMultibyteOffsets(t *testing.T) {
	text := strings.Repeat("Neni për detyrimet ", 80)
	chunks := New(WithChunkSize(120), WithOverlap(20)).Split(text)
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestOverlapClamped(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(500))
	assert.Equal(t, 50, c.overlap)
}

func TestAnnotate(t *testing.T) {
	chunks := []Chunk{{Ordinal: 0, Text: "a"}, {Ordinal: 1, Text: "b"}}
	meta := map[string]any{"id": "doc-1", "title": "Civil Code"}
	out := Annotate(chunks, meta)

	require.Len(t, out, 2)
	assert.Equal(t, "doc-1", out[1]["id"])
	assert.Equal(t, 1, out[1]["chunk"])
	assert.Equal(t, 2, out[1]["total_chunks"])
	assert.Equal(t, "b", out[1]["text"])
	assert.NotContains(t, meta, "chunk")
	assert.Equal(t, []string{"a", "b"}, Texts(chunks))
}
