package driving

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// Retriever returns the chunks most relevant to a piece of text.
// It is the only view of the index the answering path depends on.
type Retriever interface {
	// Retrieve returns at most k chunks, best first.
	Retrieve(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error)
}

// IndexService builds, queries and persists the embedding index.
type IndexService interface {
	Retriever

	// Build embeds the chunks and publishes a fresh index.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// Query embeds the question and returns the top k chunks by similarity.
	Query(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error)

	// Save persists the current index to location.
	Save(ctx context.Context, location string) error

	// Load replaces the current index with the one stored at location.
	Load(ctx context.Context, location string) error

	// Info describes the published index. Ready is false before the first
	// build or load.
	Info() domain.IndexInfo
}
