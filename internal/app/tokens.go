package app

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter returns the prompt token count of s.
type TokenCounter func(s string) int

// NewTiktokenCounter counts with the cl100k_base encoding used by current chat models.
// Loading the encoding may need network access on first use.
func NewTiktokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}

// EstimateTokens assumes four characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}
