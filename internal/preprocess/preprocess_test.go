package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{"crlf and blank lines", "Title\r\n\r\nArticle 1\rBody", Options{}, "Title\nArticle 1\nBody"},
		{"control chars", "Law\x00 of\x07 Obligations\x7f", Options{}, "Law of Obligations"},
		{"collapse spaces keeps lines", "a  \t b\n  c   d  ", Options{}, "a b\nc d"},
		{"nfkc", "ﬁnal Ａｒｔｉｃｌｅ １", Options{}, "final Article 1"},
		{"nbsp", "Article 1", Options{}, "Article 1"},
		{"punctuation lines dropped", "Text\n...\n ; ; \n!?\nMore", Options{}, "Text\nMore"},
		{"urls stripped", "see https://gzk.rks-gov.net/Act.aspx?id=1 and www.example.org now", Options{StripURLs: true}, "see and now"},
		{"urls kept", "see https://example.org", Options{}, "see https://example.org"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in, tc.opts))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"",
		"   ",
		"Article 1\r\n\r\n  The  parties agree.\n\n\n...\n",
		"e\x01́ composed after strip",
		"mixed\tTabs　and ideographic space",
		"http://a.b́ trailing mark",
		"ＬＡＷ　Ｎｏ．０４／Ｌ－０７７",
		"line\x0bwith vertical tab\x0cand form feed",
		"\uFEFFBOM at start",
	}
	for _, s := range samples {
		for _, opts := range []Options{{}, {StripURLs: true}} {
			once := Normalize(s, opts)
			assert.Equal(t, once, Normalize(once, opts), "input %q", s)
		}
	}
}

func TestSummary(t *testing.T) {
	text := "First sentence. Second sentence is here. Third one."
	assert.Equal(t, text, Summary(text, 200))
	assert.Equal(t, "First sentence. Second sentence is here.", Summary(text, 45))
	assert.Equal(t, "Averyverylong…", Summary("Averyverylong sentence without a stop", 16))
}
