package driven

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// TextExtractor reads the text content of a document file.
type TextExtractor interface {
	// Extract returns the document with its Content populated.
	// Failures wrap domain.ErrDocumentExtraction.
	Extract(ctx context.Context, path string) (*domain.Document, error)

	// Supports reports whether the extractor handles the given file path.
	Supports(path string) bool
}
