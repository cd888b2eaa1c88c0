package driving

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// QAService answers questions against the indexed documents.
type QAService interface {
	// Ask retrieves context, generates a cited answer and records it.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// History returns past questions and answers, newest first.
	History(ctx context.Context) ([]domain.QARecord, error)
}

// IngestService turns PDF files into a searchable index.
type IngestService interface {
	// Ingest extracts, chunks and indexes the given files or directories.
	Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error)
}
