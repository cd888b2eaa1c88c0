package driving

import "github.com/researchbot/researchbot/internal/core/domain"

// SettingsService reads and changes the persisted configuration.
type SettingsService interface {
	// Get returns the effective settings: stored values, then environment
	// API keys, then built-in defaults.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetRetrieval(retrieval domain.RetrievalSettings) error

	// Validate reports whether both providers are configured and the
	// retrieval parameters are consistent. It makes no network calls.
	Validate() error

	// CheckEmbedding and CheckLLM ping the configured providers.
	CheckEmbedding() error
	CheckLLM() error
}
