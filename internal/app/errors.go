package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = errors.New("document version not found")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyDocument    = errors.New("document contains no extractable text")
	ErrNoObject         = errors.New("document has no stored file")
)
