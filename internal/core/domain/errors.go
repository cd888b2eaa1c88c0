package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration indicates a parameter outside its allowed range,
	// such as a chunk overlap not smaller than the chunk size or k <= 0.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyInput indicates an index build was requested with no chunks.
	ErrEmptyInput = errors.New("empty input")

	// ErrUninitializedIndex indicates a query against an index that has
	// never been built or loaded.
	ErrUninitializedIndex = errors.New("index not initialised")

	// Provider Errors.

	// ErrDocumentExtraction indicates a PDF could not be read as text.
	ErrDocumentExtraction = errors.New("document extraction failed")

	// ErrEmbeddingProvider indicates the embedding provider failed or timed out.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationProvider indicates the generation provider failed or timed out.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrStorage indicates the index file, QA log or config file could not be
	// read or written.
	ErrStorage = errors.New("storage error")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation and context summarisation are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// UserMessage maps an error to the message shown to end users.
// Each error kind gets its own wording so users can tell a missing index
// apart from a provider outage.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUninitializedIndex):
		return "No documents indexed yet. Run 'researchbot ingest <file.pdf>' first."
	case errors.Is(err, ErrEmptyInput):
		return "The documents contained no extractable text."
	case errors.Is(err, ErrDocumentExtraction):
		return "Could not read text from the document."
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrLLMUnavailable):
		return "AI provider not configured. Run 'researchbot settings wizard'."
	case errors.Is(err, ErrEmbeddingProvider):
		return "Embedding provider unavailable. Check that it is running and reachable."
	case errors.Is(err, ErrGenerationProvider):
		return "Generation provider unavailable. Check that it is running and reachable."
	case errors.Is(err, ErrStorage):
		return "Could not read or write local data."
	case errors.Is(err, ErrInvalidConfiguration):
		return "Invalid configuration. Check 'researchbot settings'."
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	default:
		return "Something went wrong: " + err.Error()
	}
}
