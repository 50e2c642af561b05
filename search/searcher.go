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


package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// verbatimBoost is added when every query word appears in the record text.
const verbatimBoost = 0.3

// Searcher answers semantic queries over the memory records an index holds.
type Searcher struct {
	vectors  storage.VectorStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(vectors storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		vectors:  vectors,
		embedder: embedder,
		logger:   slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Query holds the parameters of one search.
type Query struct {
	// Index names the searched index.
	Index string

	// Text is the natural-language query, embedded to rank by similarity.
	Text string

	// MinScore drops results scoring below it. Zero keeps everything.
	MinScore float32

	// Limit caps the number of results. Zero means 10.
	Limit int

	// Tags filters results: a record matches when, for every key, it carries
	// at least one of the requested values.
	Tags map[string][]string
}

// Search embeds the query text, ranks the index's records by similarity,
// applies the tag filter, and boosts records containing every query word.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*core.SearchResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	vector, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	// Over-fetch so the tag filter does not starve the result set.
	fetch := limit
	if len(q.Tags) > 0 {
		fetch = limit * 4
	}
	matches, err := s.vectors.Query(ctx, q.Index, vector, q.MinScore, fetch)
	if err != nil {
		s.logger.Error("error querying vector store", "index", q.Index, "err", err)
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		if !matchesTags(match.Record.Tags, q.Tags) {
			continue
		}
		score := match.Score
		if containsAllQueryWords(match.Record.Text, q.Text) {
			score += verbatimBoost
		}
		results = append(results, &core.SearchResult{Record: match.Record, Score: score})
	}

	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("search finished", "index", q.Index, "results", len(results))
	return results, nil
}

// matchesTags reports whether record tags satisfy the filter: every filter
// key must be present with at least one overlapping value.
func matchesTags(recordTags, filter map[string][]string) bool {
	for key, wanted := range filter {
		if len(wanted) == 0 {
			continue
		}
		values := recordTags[key]
		found := false
		for _, w := range wanted {
			if slices.Contains(values, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
