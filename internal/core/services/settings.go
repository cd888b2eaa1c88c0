package services

import (
	"cmp"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Keys in the config file.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyChunkSize       = "retrieval.chunk_size"
	keyChunkOverlap    = "retrieval.chunk_overlap"
	keyTopK            = "retrieval.top_k"
	keyMaxContextChars = "retrieval.max_context_chars"
	keySummarise       = "retrieval.summarise"
	keyMaxAnswerTokens = "retrieval.max_answer_tokens"
	keyTimeoutSeconds  = "retrieval.timeout_seconds"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup used for API key fallbacks.
func (s *SettingsService) SetEnvLookup(fn func(string) string) {
	s.getenv = fn
}

// Get retrieves current application settings.
// API keys missing from the config file are read from the provider's
// environment variable (e.g. OPENAI_API_KEY).
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, ""),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, ""),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			ChunkSize:       s.getInt(keyChunkSize, defaults.Retrieval.ChunkSize),
			ChunkOverlap:    s.getInt(keyChunkOverlap, defaults.Retrieval.ChunkOverlap),
			TopK:            s.getInt(keyTopK, defaults.Retrieval.TopK),
			MaxContextChars: s.getInt(keyMaxContextChars, defaults.Retrieval.MaxContextChars),
			Summarise:       s.getBool(keySummarise, defaults.Retrieval.Summarise),
			MaxAnswerTokens: s.getInt(keyMaxAnswerTokens, defaults.Retrieval.MaxAnswerTokens),
			TimeoutSeconds:  s.getInt(keyTimeoutSeconds, defaults.Retrieval.TimeoutSeconds),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = domain.DefaultOllamaURL
	}
	if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = domain.DefaultOllamaURL
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings in one write.
// API keys are only written when set, so keys supplied by the environment
// never end up in the config file unless the user entered them.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyEmbedProvider: settings.Embedding.Provider.String(),
		keyEmbedModel:    settings.Embedding.Model,
		keyEmbedBaseURL:  settings.Embedding.BaseURL,
		keyLLMProvider:   settings.LLM.Provider.String(),
		keyLLMModel:      settings.LLM.Model,
		keyLLMBaseURL:    settings.LLM.BaseURL,
	}
	if key := settings.Embedding.APIKey; key != "" && key != s.envKey(settings.Embedding.Provider) {
		values[keyEmbedAPIKey] = key
	}
	if key := settings.LLM.APIKey; key != "" && key != s.envKey(settings.LLM.Provider) {
		values[keyLLMAPIKey] = key
	}
	maps.Copy(values, retrievalValues(settings.Retrieval))

	if err := s.configStore.Update(values); err != nil {
		return fmt.Errorf("%w: save settings: %w", domain.ErrStorage, err)
	}
	return nil
}

func retrievalValues(r domain.RetrievalSettings) map[string]any {
	return map[string]any{
		keyChunkSize:       r.ChunkSize,
		keyChunkOverlap:    r.ChunkOverlap,
		keyTopK:            r.TopK,
		keyMaxContextChars: r.MaxContextChars,
		keySummarise:       r.Summarise,
		keyMaxAnswerTokens: r.MaxAnswerTokens,
		keyTimeoutSeconds:  r.TimeoutSeconds,
	}
}

// SetEmbeddingProvider switches embedding to provider. An empty model
// picks the provider's default; an empty apiKey falls back to the
// environment.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider.IsValid() && !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidConfiguration, provider)
	}
	apiKey, err := s.resolveKey(provider, apiKey)
	if err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	e := &settings.Embedding
	e.Provider = provider
	e.Model = cmp.Or(model, domain.DefaultEmbeddingModels()[provider])
	e.BaseURL = endpoint(provider, e.BaseURL)
	e.APIKey = apiKey
	return s.Save(settings)
}

// SetLLMProvider switches answer generation to provider, with the same
// defaulting as SetEmbeddingProvider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	apiKey, err := s.resolveKey(provider, apiKey)
	if err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	l := &settings.LLM
	l.Provider = provider
	l.Model = cmp.Or(model, domain.DefaultLLMModels()[provider])
	l.BaseURL = endpoint(provider, l.BaseURL)
	l.APIKey = apiKey
	return s.Save(settings)
}

// resolveKey checks provider and returns the key to store for it.
func (s *SettingsService) resolveKey(provider domain.AIProvider, apiKey string) (string, error) {
	if !provider.IsValid() {
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfiguration, provider)
	}
	apiKey = cmp.Or(apiKey, s.envKey(provider))
	if provider.RequiresAPIKey() && apiKey == "" {
		return "", fmt.Errorf("%w: %s needs an API key (or %s)",
			domain.ErrInvalidConfiguration, provider, provider.APIKeyEnv())
	}
	return apiKey, nil
}

// endpoint keeps a local provider's URL and clears it for cloud ones,
// which use their SDK default.
func endpoint(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	return cmp.Or(current, domain.DefaultOllamaURL)
}

// SetRetrieval updates chunking and retrieval parameters.
func (s *SettingsService) SetRetrieval(retrieval domain.RetrievalSettings) error {
	if err := retrieval.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Update(retrievalValues(retrieval)); err != nil {
		return fmt.Errorf("%w: save retrieval settings: %w", domain.ErrStorage, err)
	}
	return nil
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if err := settings.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval settings: %w", err)
	}

	return nil
}

// CheckEmbedding pings the configured embedding provider.
func (s *SettingsService) CheckEmbedding() error {
	return s.check(func(settings *domain.AppSettings) error {
		return s.aiValidator.ValidateEmbedding(&settings.Embedding)
	})
}

// CheckLLM pings the configured LLM provider.
func (s *SettingsService) CheckLLM() error {
	return s.check(func(settings *domain.AppSettings) error {
		return s.aiValidator.ValidateLLM(&settings.LLM)
	})
}

func (s *SettingsService) check(fn func(*domain.AppSettings) error) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return fn(settings)
}

// GetPipelineConfig returns the ingestion pipeline for the current
// retrieval settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultPipelineConfig()
	}
	return domain.PipelineConfigFor(settings.Retrieval)
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name := provider.APIKeyEnv()
	if name == "" || s.getenv == nil {
		return ""
	}
	return s.getenv(name)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt returns the stored value when the key exists, so an explicit 0
// (e.g. no chunk overlap) is preserved.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
