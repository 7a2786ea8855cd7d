// Package parser splits normalized legal text into articles and sections.
package parser

import "strings"

// DocumentType drives the choice of parsing strategy.
type DocumentType string

const (
	TypeLaw        DocumentType = "law"
	TypeRegulation DocumentType = "regulation"
	TypeCaseLaw    DocumentType = "case_law"
	TypeContract   DocumentType = "contract"
	TypeArticle    DocumentType = "article"
	TypeOther      DocumentType = "other"
)

// ParseDocumentType maps free-form input to a DocumentType, defaulting to TypeOther.
func ParseDocumentType(s string) DocumentType {
	switch t := DocumentType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeLaw, TypeRegulation, TypeCaseLaw, TypeContract, TypeArticle, TypeOther:
		return t
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "court_decision", "case", "decision", "judgment":
		return TypeCaseLaw
	case "agreement":
		return TypeContract
	case "publication":
		return TypeArticle
	}
	return TypeOther
}

func (t DocumentType) Valid() bool {
	return ParseDocumentType(string(t)) == t
}

// UnknownNumber marks a section whose ordinal could not be parsed.
const UnknownNumber = "Unknown"

// Section is one node of the parsed document tree.
type Section struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Number      string    `json:"number,omitempty"`
	Kind        string    `json:"kind"`
	Subsections []Section `json:"subsections,omitempty"`
}

// Document is the structure produced for one text.
type Document struct {
	Title    string         `json:"title"`
	Type     DocumentType   `json:"document_type"`
	Preamble string         `json:"preamble,omitempty"`
	Sections []Section      `json:"sections"`
	Outline  []Section      `json:"outline,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// Structure is what a strategy returns before the shared title handling.
type Structure struct {
	Preamble string
	Sections []Section
	Outline  []Section
	Metadata map[string]any
}

// Strategy parses text of a single document type. Strategies never fail.
type Strategy func(text string) Structure
