package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const minCharsetConfidence = 30

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText never fails: it tries UTF-8, then the detected charset, then
// falls back to UTF-8 with replacement characters.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	if decoded, ok := decodeDetected(data); ok {
		return decoded
	}
	return strings.ToValidUTF8(string(data), "�")
}

func decodeDetected(data []byte) (string, bool) {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Confidence < minCharsetConfidence {
		return "", false
	}
	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return "", false
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}
