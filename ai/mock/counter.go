package mock

import "strings"

// WordCounter counts whitespace-separated words as tokens. Deterministic and
// dependency-free, for tests that need predictable partition sizing.
type WordCounter struct{}

// CountTokens returns the number of whitespace-separated words in text.
func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}
