package extract

import (
	"context"
	"testing"

	"github.com/poiesic/docpipe/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDecodePlainText(t *testing.T) {
	r := NewRegistry()
	result, err := r.Decode(context.Background(), "text/plain", []byte("hello\r\nworld"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", result.Text)
	assert.Equal(t, chunker.FormatPlainText, result.Format)
	assert.Equal(t, []string{"hello\nworld"}, result.Pages)
}

func TestRegistryDecodeMimeParameters(t *testing.T) {
	r := NewRegistry()
	result, err := r.Decode(context.Background(), "Text/Plain; charset=utf-8", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", result.Text)
}

func TestRegistryUnsupportedType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Decode(context.Background(), "application/pdf", []byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnsupportedContent)
	assert.False(t, r.Supports("application/pdf"))
	assert.True(t, r.Supports("text/markdown"))
}

func TestTextDecoderPages(t *testing.T) {
	d := &TextDecoder{}
	result, err := d.Decode(context.Background(), []byte("page one\fpage two\fpage three"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two", "page three"}, result.Pages)
	assert.Equal(t, "page one\n\npage two\n\npage three", result.Text)
}

func TestMarkdownDecoderKeepsStructure(t *testing.T) {
	d := &MarkdownDecoder{}
	source := "# Title\n\n```go\nfunc main() {}\n```\n\n- item one\n- item two\n"
	result, err := d.Decode(context.Background(), []byte(source))
	require.NoError(t, err)
	assert.Equal(t, chunker.FormatMarkdown, result.Format)
	assert.Contains(t, result.Text, "```go\nfunc main() {}\n```")
}

func TestNormalizeTextInvalidUTF8(t *testing.T) {
	d := &TextDecoder{}
	result, err := d.Decode(context.Background(), []byte{0x68, 0x69, 0xff, 0x21})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "hi")
	assert.Contains(t, result.Text, "�")
}

func TestRegistryReplaceDecoder(t *testing.T) {
	r := NewRegistry()
	r.Register(&MarkdownDecoder{}) // re-register is harmless
	assert.True(t, r.Supports("text/x-markdown"))
}
