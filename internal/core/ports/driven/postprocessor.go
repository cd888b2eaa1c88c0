package driven

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// PostProcessor is one ingest stage. Text stages edit doc.Content and
// return chunks unchanged; the chunker ignores its input chunks and
// returns new ones from doc.Content.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs its stages in order and returns the last
// stage's chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
