package handlers

import (
	"fmt"

	"github.com/poiesic/docpipe/chunker"
)

// Artifact naming: every generated file derives its name from the source
// file, so the presence of a name in the pipeline's generated-file map is the
// idempotency check for the step that produces it.

func extractedName(file string) string {
	return file + ".extract.txt"
}

func partitionName(file string, n int) string {
	return fmt.Sprintf("%s.partition.%d.txt", file, n)
}

func embeddingName(file string, n int) string {
	return fmt.Sprintf("%s.partition.%d.embedding.json", file, n)
}

// formatForMime picks the chunker format from the source file's MIME type.
func formatForMime(mimeType string) chunker.Format {
	switch mimeType {
	case "text/markdown", "text/x-markdown":
		return chunker.FormatMarkdown
	default:
		return chunker.FormatPlainText
	}
}
