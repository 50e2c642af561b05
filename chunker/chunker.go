// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// TokenCounter reports the token count of a text under some tokenizer.
// Implementations must be safe for concurrent use.
type TokenCounter interface {
	CountTokens(text string) int
}

// Format selects the boundary rules used when splitting text into lines.
type Format int

const (
	// FormatPlainText splits on sentence boundaries only.
	FormatPlainText Format = iota
	// FormatMarkdown additionally treats code fences, list items, and
	// headings as atomic lines that are never split internally.
	FormatMarkdown
)

// Options bound the partitioning algorithm.
type Options struct {
	// MaxTokensPerLine bounds each sentence-respecting line.
	MaxTokensPerLine int
	// MaxTokensPerParagraph bounds each emitted partition.
	MaxTokensPerParagraph int
	// OverlapTokens is the size of the previous partition's tail repeated at
	// the start of the next partition.
	OverlapTokens int
	// Format selects plain-text or markdown boundary rules.
	Format Format
	// PagesEndSentences prevents partitions from spanning page boundaries
	// when splitting page-structured sources.
	PagesEndSentences bool
}

// DefaultOptions returns the bounds used by the standard ingestion steps.
func DefaultOptions() Options {
	return Options{
		MaxTokensPerLine:      300,
		MaxTokensPerParagraph: 1000,
		OverlapTokens:         100,
		Format:                FormatPlainText,
	}
}

var (
	// ErrInvalidOptions indicates the partitioning bounds are inconsistent.
	ErrInvalidOptions = errors.New("invalid chunker options")

	// ErrCounterRequired indicates no token counter was provided.
	ErrCounterRequired = errors.New("token counter required")
)

// Validate checks the partitioning bounds.
func (o Options) Validate() error {
	if o.MaxTokensPerLine <= 0 {
		return fmt.Errorf("%w: MaxTokensPerLine must be positive", ErrInvalidOptions)
	}
	if o.MaxTokensPerParagraph <= 0 {
		return fmt.Errorf("%w: MaxTokensPerParagraph must be positive", ErrInvalidOptions)
	}
	if o.OverlapTokens < 0 {
		return fmt.Errorf("%w: OverlapTokens cannot be negative", ErrInvalidOptions)
	}
	if o.OverlapTokens >= o.MaxTokensPerParagraph {
		return fmt.Errorf("%w: OverlapTokens must be smaller than MaxTokensPerParagraph", ErrInvalidOptions)
	}
	return nil
}

// Partition is one bounded, overlap-aware chunk of extracted text.
type Partition struct {
	Text       string
	TokenCount int
	// Page is the zero-based source page index, or 0 for unpaged sources.
	Page int
	// SentencesAreComplete marks a partition that ends exactly at a page
	// boundary, so no overlap was carried into the next partition.
	SentencesAreComplete bool
}

// Split partitions text into size-bounded, overlap-aware chunks. Empty input
// yields zero partitions. Content is never dropped to satisfy a bound: a
// single line exceeding MaxTokensPerParagraph still becomes one partition.
func Split(text string, opts Options, counter TokenCounter) ([]Partition, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, ErrCounterRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lines := splitToLines(text, opts, counter)
	return aggregate(lines, opts, counter), nil
}

// SplitPages partitions page-structured text. With PagesEndSentences set,
// lines from two different pages are never merged into one partition and no
// overlap is carried across a page boundary; the partition closing each page
// is marked SentencesAreComplete.
func SplitPages(pages []string, opts Options, counter TokenCounter) ([]Partition, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, ErrCounterRequired
	}

	if !opts.PagesEndSentences {
		return Split(strings.Join(pages, "\n\n"), opts, counter)
	}

	var parts []Partition
	for page, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageParts := aggregate(splitToLines(text, opts, counter), opts, counter)
		if len(pageParts) == 0 {
			continue
		}
		for i := range pageParts {
			pageParts[i].Page = page
		}
		pageParts[len(pageParts)-1].SentencesAreComplete = true
		parts = append(parts, pageParts...)
	}
	return parts, nil
}

// aggregate greedily packs lines into partitions bounded by
// MaxTokensPerParagraph, seeding each partition after the first with an
// OverlapTokens-sized tail of its predecessor.
func aggregate(lines []string, opts Options, counter TokenCounter) []Partition {
	sep := lineSeparator(opts.Format)

	var parts []Partition
	var cur []string
	curTokens := 0
	hasContent := false

	emit := func() {
		text := strings.Join(cur, sep)
		parts = append(parts, Partition{Text: text, TokenCount: counter.CountTokens(text)})

		cur = cur[:0]
		curTokens = 0
		hasContent = false
		if tail := overlapTail(text, opts.OverlapTokens, counter); tail != "" {
			cur = append(cur, tail)
			curTokens = counter.CountTokens(tail)
		}
	}

	for _, line := range lines {
		lt := counter.CountTokens(line)
		if hasContent && curTokens+lt > opts.MaxTokensPerParagraph {
			emit()
		}
		cur = append(cur, line)
		curTokens += lt
		hasContent = true
	}
	// A trailing overlap seed with no content of its own is discarded.
	if hasContent {
		emit()
	}
	return parts
}

// overlapTail returns the smallest trailing word suffix of text whose token
// count reaches overlap, or the whole text when it is shorter than that.
func overlapTail(text string, overlap int, counter TokenCounter) string {
	if overlap <= 0 {
		return ""
	}
	words := strings.Fields(text)
	tokens := 0
	i := len(words)
	for i > 0 && tokens < overlap {
		i--
		tokens += counter.CountTokens(words[i])
	}
	return strings.Join(words[i:], " ")
}

func lineSeparator(format Format) string {
	if format == FormatMarkdown {
		return "\n"
	}
	return " "
}
