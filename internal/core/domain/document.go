package domain

import (
	"strings"
	"time"
)

// Document represents an extracted PDF before chunking.
// Documents are transient: only their chunks are indexed.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full extracted text.
	// This is the complete document text before chunking.
	Content string

	// Pages is the number of pages the extractor read.
	Pages int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk represents a retrievable unit of text.
// Documents are split into chunks so retrieval can return focused passages.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position in the chunked text.
	// Retrieval uses it to break score ties.
	Position int

	// Start is the rune offset where Content begins in the chunked text.
	Start int

	// End is the rune offset one past the last rune of Content.
	End int

	// Overlap is the number of leading runes of Content shared with the
	// previous chunk. Always zero for the first chunk.
	Overlap int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Fresh returns the part of Content not shared with the previous chunk.
func (c Chunk) Fresh() string {
	runes := []rune(c.Content)
	if c.Overlap <= 0 || c.Overlap > len(runes) {
		return c.Content
	}
	return string(runes[c.Overlap:])
}

// Reassemble rebuilds the chunked text from an ordered chunk sequence.
func Reassemble(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(chunks[0].Content)
	for _, c := range chunks[1:] {
		sb.WriteString(c.Fresh())
	}
	return sb.String()
}
