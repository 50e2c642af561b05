package ai

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter counts tokens with a tiktoken encoding. Safe for concurrent
// use.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var _ TokenCounter = (*TiktokenCounter)(nil)

// NewTiktokenCounter creates a token counter for the named encoding,
// e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// RuneCounter approximates token counts as one token per four characters,
// the rule of thumb for English text under BPE tokenizers. Useful when the
// tiktoken vocabulary cannot be loaded.
type RuneCounter struct{}

var _ TokenCounter = RuneCounter{}

// CountTokens returns an approximate token count for text.
func (RuneCounter) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
