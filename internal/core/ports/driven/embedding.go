package driven

import "context"

// EmbeddingService maps text to vectors. An index must be queried with the
// same model it was built with, which ModelName lets the caller check.
// Adapters: OpenAI, Gemini and Ollama.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length the model is known to produce.
	Dimensions() int
	ModelName() string

	Ping(ctx context.Context) error
	Close() error
}
