// Package extract turns uploaded files into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailure = errors.New("document extraction failed")
)

// Format identifies the extraction routine for a document.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
	FormatRTF  Format = "rtf"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

var mimeFormats = map[string]Format{
	"application/pdf":    FormatPDF,
	"application/msword": FormatDOCX,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"text/plain":       FormatTXT,
	"application/rtf":  FormatRTF,
	"text/rtf":         FormatRTF,
	"text/html":        FormatHTML,
	"application/json": FormatJSON,
}

var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".doc":  FormatDOCX,
	".docx": FormatDOCX,
	".txt":  FormatTXT,
	".rtf":  FormatRTF,
	".html": FormatHTML,
	".htm":  FormatHTML,
	".json": FormatJSON,
}

// RawDocument is an uploaded file waiting for extraction.
type RawDocument struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Extractor converts raw documents into text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of doc. Unknown formats yield ErrUnsupportedFormat and
// corrupt containers yield ErrExtractionFailure.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format, err := ResolveFormat(doc)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatPDF:
		return extractPDF(doc.Data)
	case FormatDOCX:
		return extractDOCX(doc.Data)
	case FormatTXT:
		return decodeText(doc.Data), nil
	case FormatRTF:
		return extractRTF(decodeText(doc.Data)), nil
	case FormatHTML:
		return extractHTML(decodeText(doc.Data))
	case FormatJSON:
		return extractJSON(doc.Data)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// ResolveFormat maps the declared MIME type to a format. Empty or generic types are
// sniffed from content, then from the file extension.
func ResolveFormat(doc RawDocument) (Format, error) {
	declared := baseMIME(doc.MIMEType)
	if f, ok := mimeFormats[declared]; ok {
		return f, nil
	}
	if declared != "" && declared != "application/octet-stream" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, declared)
	}
	byExt, hasExt := extFormats[strings.ToLower(filepath.Ext(doc.Filename))]

	if len(doc.Data) > 0 {
		detected := mimetype.Detect(doc.Data)
		for m := detected; m != nil; m = m.Parent() {
			if f, ok := mimeFormats[baseMIME(m.String())]; ok {
				// any text sniffs as text/plain; the extension is more specific
				if f == FormatTXT && hasExt {
					return byExt, nil
				}
				return f, nil
			}
		}
	}

	if hasExt {
		return byExt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.MIMEType)
}

func baseMIME(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		if i := strings.IndexByte(raw, ';'); i >= 0 {
			return strings.TrimSpace(raw[:i])
		}
		return raw
	}
	return mt
}
