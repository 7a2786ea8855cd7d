package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

const (
	maxSequenceLength = 256
	maxWordRunes      = 100
)

// wordPiece is a BERT-style uncased tokenizer over a vocab.txt file.
type wordPiece struct {
	vocab map[string]int64
	unk   int64
	cls   int64
	sep   int64
}

func loadWordPiece(path string) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return readWordPiece(f)
}

func readWordPiece(r io.Reader) (*wordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimSpace(sc.Text())
		if tok != "" {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}

	wp := &wordPiece{vocab: vocab}
	for name, dst := range map[string]*int64{"[UNK]": &wp.unk, "[CLS]": &wp.cls, "[SEP]": &wp.sep} {
		v, ok := vocab[name]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", name)
		}
		*dst = v
	}
	return wp, nil
}

// encode returns token ids wrapped in [CLS] ... [SEP], capped at maxSequenceLength.
func (w *wordPiece) encode(text string) []int64 {
	ids := []int64{w.cls}
	limit := maxSequenceLength - 1
	for _, word := range basicTokens(text) {
		for _, id := range w.wordIDs(word) {
			if len(ids) >= limit {
				return append(ids, w.sep)
			}
			ids = append(ids, id)
		}
	}
	return append(ids, w.sep)
}

func (w *wordPiece) wordIDs(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{w.unk}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		matched := int64(-1)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := w.vocab[piece]; ok {
				matched = id
				break
			}
		}
		if matched < 0 {
			return []int64{w.unk}
		}
		ids = append(ids, matched)
		start = end
	}
	return ids
}

// basicTokens lowercases and splits on whitespace, keeping punctuation as separate tokens.
func basicTokens(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
