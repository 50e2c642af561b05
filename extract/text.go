package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docpipe/chunker"
)

// formFeed separates pages in plain-text exports of paginated documents.
const formFeed = "\f"

// TextDecoder extracts plain text documents. Form feeds are treated as page
// separators.
type TextDecoder struct{}

var _ Decoder = (*TextDecoder)(nil)

// MimeTypes reports the MIME types handled by TextDecoder.
func (d *TextDecoder) MimeTypes() []string {
	return []string{"text/plain", "text/csv", "application/json"}
}

// Decode normalizes line endings and splits pages on form feeds.
func (d *TextDecoder) Decode(ctx context.Context, content []byte) (*Result, error) {
	text := normalizeText(content)
	pages := strings.Split(text, formFeed)
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	return &Result{
		Text:   strings.TrimSpace(strings.ReplaceAll(text, formFeed, "\n\n")),
		Pages:  pages,
		Format: chunker.FormatPlainText,
	}, nil
}

// MarkdownDecoder extracts markdown documents, preserving the structural
// markers the chunker needs to keep code fences and list items intact.
type MarkdownDecoder struct{}

var _ Decoder = (*MarkdownDecoder)(nil)

// MimeTypes reports the MIME types handled by MarkdownDecoder.
func (d *MarkdownDecoder) MimeTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Decode normalizes line endings. Markdown has no page structure, so the
// whole document is one page.
func (d *MarkdownDecoder) Decode(ctx context.Context, content []byte) (*Result, error) {
	text := strings.TrimSpace(normalizeText(content))
	return &Result{
		Text:   text,
		Pages:  []string{text},
		Format: chunker.FormatMarkdown,
	}, nil
}

// normalizeText converts content to a string with unix line endings,
// replacing invalid UTF-8 sequences with the replacement rune.
func normalizeText(content []byte) string {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
