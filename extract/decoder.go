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


// Package extract converts uploaded document bytes into plain text ready for
// partitioning. Decoders are selected by MIME type; unsupported types surface
// ErrUnsupportedContent, which the pipeline treats as a permanent failure
// rather than retrying.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/docpipe/chunker"
)

// ErrUnsupportedContent indicates no decoder is registered for a MIME type.
// Retrying cannot fix this, so callers should fail the operation permanently.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Result is the output of decoding one document.
type Result struct {
	// Text is the extracted plain text, page markers removed.
	Text string

	// Pages holds per-page text when the source format has page structure.
	// Single-page formats produce one entry.
	Pages []string

	// Format tells the chunker whether structural markers (code fences,
	// list items) must be kept intact.
	Format chunker.Format

	// PagesEndSentences reports whether a page boundary always ends a
	// sentence in the source format.
	PagesEndSentences bool
}

// Decoder converts one content type to plain text.
type Decoder interface {
	// MimeTypes lists the MIME types this decoder handles.
	MimeTypes() []string

	// Decode extracts text from raw document bytes.
	Decode(ctx context.Context, content []byte) (*Result, error)
}

// Registry maps MIME types to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry creates a registry with the built-in decoders for plain text
// and markdown.
func NewRegistry() *Registry {
	r := &Registry{decoders: map[string]Decoder{}}
	r.Register(&TextDecoder{})
	r.Register(&MarkdownDecoder{})
	return r
}

// Register adds a decoder for each MIME type it reports. Later registrations
// for the same type win, so callers can replace built-ins.
func (r *Registry) Register(d Decoder) {
	for _, mime := range d.MimeTypes() {
		r.decoders[normalizeMime(mime)] = d
	}
}

// Decode extracts text from content using the decoder registered for
// mimeType. Returns ErrUnsupportedContent when no decoder matches.
func (r *Registry) Decode(ctx context.Context, mimeType string, content []byte) (*Result, error) {
	d, ok := r.decoders[normalizeMime(mimeType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContent, mimeType)
	}
	return d.Decode(ctx, content)
}

// Supports reports whether a decoder is registered for mimeType.
func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.decoders[normalizeMime(mimeType)]
	return ok
}

// normalizeMime strips parameters ("text/plain; charset=utf-8") and lowers
// the case so lookups match however the client labeled the upload.
func normalizeMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
