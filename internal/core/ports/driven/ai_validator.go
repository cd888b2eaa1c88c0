package driven

import "github.com/researchbot/researchbot/internal/core/domain"

// AIConfigValidator checks that provider settings reach a live service.
// Settings that name no usable provider are not an error.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateLLM(settings *domain.LLMSettings) error
}
