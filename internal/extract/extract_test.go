package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	ct, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`))
	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, _ = doc.Write([]byte(documentXML))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Article 1</w:t></w:r><w:r><w:t xml:space="preserve"> Scope</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>This law applies.</w:t></w:r></w:p>
</w:body>
</w:document>`
	text, err := New().Extract(context.Background(), RawDocument{
		Data:     buildDOCX(t, xml),
		MIMEType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Filename: "law.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, "Article 1 Scope\n\nThis law applies.", text)
}

func TestExtractDOCXCorrupt(t *testing.T) {
	_, err := New().Extract(context.Background(), RawDocument{
		Data:     []byte("not a zip archive"),
		MIMEType: "application/msword",
	})
	assert.ErrorIs(t, err, ErrExtractionFailure)
}

func TestExtractPDFRejectsNonPDF(t *testing.T) {
	_, err := New().Extract(context.Background(), RawDocument{
		Data:     []byte("plain words pretending to be a pdf"),
		MIMEType: "application/pdf",
	})
	assert.ErrorIs(t, err, ErrExtractionFailure)

	_, err = New().Extract(context.Background(), RawDocument{MIMEType: "application/pdf"})
	assert.ErrorIs(t, err, ErrExtractionFailure)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := New().Extract(context.Background(), RawDocument{
		Data:     []byte{0x89, 'P', 'N', 'G'},
		MIMEType: "image/png",
		Filename: "scan.png",
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractTextEncodings(t *testing.T) {
	ex := New()

	text, err := ex.Extract(context.Background(), RawDocument{
		Data:     append([]byte{0xEF, 0xBB, 0xBF}, []byte("Ligji për detyrimet")...),
		MIMEType: "text/plain; charset=utf-8",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ligji për detyrimet", text)

	// garbled bytes never fail
	text, err = ex.Extract(context.Background(), RawDocument{
		Data:     []byte{'a', 0xff, 0xfe, 0xfd, 'b'},
		MIMEType: "text/plain",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.True(t, utf8.ValidString(text))
}

func TestExtractHTML(t *testing.T) {
	src := `<html><head><title>ignored</title><style>p{}</style></head>
<body><h1>Civil Code</h1><script>var x = 1;</script><p>Article 1 &amp; scope</p><p>Second   paragraph</p></body></html>`
	text, err := New().Extract(context.Background(), RawDocument{Data: []byte(src), MIMEType: "text/html"})
	require.NoError(t, err)
	assert.Equal(t, "Civil Code\n\nArticle 1 & scope\n\nSecond paragraph", text)
}

func TestExtractRTF(t *testing.T) {
	src := `{\rtf1\ansi\deff0{\fonttbl{\f0 Times New Roman;}}{\colortbl;\red0\green0\blue0;}
{\*\generator Writer;}\f0\fs24 Article 1\par Caf\'e9 \u8364? owners\par}`
	text, err := New().Extract(context.Background(), RawDocument{Data: []byte(src), MIMEType: "application/rtf"})
	require.NoError(t, err)
	assert.Equal(t, "Article 1\nCafé € owners", text)
}

func TestExtractJSON(t *testing.T) {
	ex := New()
	ctx := context.Background()

	text, err := ex.Extract(ctx, RawDocument{Data: []byte(`{"title":"x","content":"Article 1 text"}`), MIMEType: "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "Article 1 text", text)

	text, err = ex.Extract(ctx, RawDocument{Data: []byte(`[{"content":"one"},{"content":"two"},{"other":1}]`), MIMEType: "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", text)

	text, err = ex.Extract(ctx, RawDocument{Data: []byte(`{"a":1}`), MIMEType: "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", text)

	_, err = ex.Extract(ctx, RawDocument{Data: []byte(`{broken`), MIMEType: "application/json"})
	assert.ErrorIs(t, err, ErrExtractionFailure)
}

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		name string
		doc  RawDocument
		want Format
	}{
		{"declared with params", RawDocument{MIMEType: "text/plain; charset=iso-8859-1"}, FormatTXT},
		{"sniffed html", RawDocument{Data: []byte("<!DOCTYPE html><html><body>x</body></html>"), MIMEType: "application/octet-stream"}, FormatHTML},
		{"sniffed pdf", RawDocument{Data: []byte("%PDF-1.4\n%...")}, FormatPDF},
		{"extension wins over generic text", RawDocument{Data: []byte(`{"content":"x"}`), Filename: "laws.JSON"}, FormatJSON},
		{"extension only", RawDocument{Filename: "kodi.htm"}, FormatHTML},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveFormat(tc.doc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ResolveFormat(RawDocument{Filename: "archive.tar"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
