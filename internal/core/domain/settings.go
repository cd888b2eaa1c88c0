package domain

import "fmt"

const unknownDescription = "Unknown"

// AIProvider names a backend for embeddings, answers or both.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGemini    AIProvider = "gemini"
)

type providerTraits struct {
	description string
	keyEnv      string // empty for providers that take no key
	local       bool
	embeddings  bool
}

var providers = map[AIProvider]providerTraits{
	AIProviderOllama:    {description: "Ollama (local)", local: true, embeddings: true},
	AIProviderOpenAI:    {description: "OpenAI (cloud)", keyEnv: "OPENAI_API_KEY", embeddings: true},
	AIProviderAnthropic: {description: "Anthropic (cloud)", keyEnv: "ANTHROPIC_API_KEY"},
	AIProviderGemini:    {description: "Google Gemini (cloud)", keyEnv: "GEMINI_API_KEY", embeddings: true},
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

func (p AIProvider) RequiresAPIKey() bool     { return providers[p].keyEnv != "" }
func (p AIProvider) IsLocal() bool            { return providers[p].local }
func (p AIProvider) SupportsEmbeddings() bool { return providers[p].embeddings }

// APIKeyEnv returns the environment variable consulted when no API key is
// configured, or "" for providers without keys.
func (p AIProvider) APIKeyEnv() string { return providers[p].keyEnv }

func (p AIProvider) String() string { return string(p) }

// Description is the label shown in the settings wizard.
func (p AIProvider) Description() string {
	if t, ok := providers[p]; ok {
		return t.description
	}
	return unknownDescription
}

// usable reports whether p is known and has the key it needs.
func usable(p AIProvider, apiKey string) bool {
	return p.IsValid() && (!p.RequiresAPIKey() || apiKey != "")
}

// EmbeddingSettings selects the model that turns chunks and questions into
// vectors. BaseURL only applies to local providers.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether the settings can build an embedding service.
func (e EmbeddingSettings) IsConfigured() bool {
	return usable(e.Provider, e.APIKey) && e.Provider.SupportsEmbeddings()
}

// LLMSettings selects the model that writes answers and summaries.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether the settings can build an LLM service.
func (l LLMSettings) IsConfigured() bool {
	return usable(l.Provider, l.APIKey)
}

// RetrievalSettings holds chunking, retrieval and generation parameters.
type RetrievalSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int

	// TopK is the number of chunks retrieved per question.
	TopK int

	// MaxContextChars bounds the composed context length.
	MaxContextChars int

	// Summarise enables per-chunk LLM summaries in the context.
	Summarise bool

	// MaxAnswerTokens bounds the generated answer length.
	MaxAnswerTokens int

	// TimeoutSeconds bounds each provider call.
	TimeoutSeconds int
}

// Validate checks the retrieval parameters for consistency.
func (r RetrievalSettings) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"chunk_size", r.ChunkSize},
		{"top_k", r.TopK},
		{"max_context_chars", r.MaxContextChars},
		{"max_answer_tokens", r.MaxAnswerTokens},
		{"timeout_seconds", r.TimeoutSeconds},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfiguration, f.name, f.value)
		}
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d",
			ErrInvalidConfiguration, r.ChunkSize, r.ChunkOverlap)
	}
	return nil
}

// DefaultRetrievalSettings returns the retrieval defaults.
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		ChunkSize:       800,
		ChunkOverlap:    150,
		TopK:            3,
		MaxContextChars: 6000,
		Summarise:       false,
		MaxAnswerTokens: 512,
		TimeoutSeconds:  60,
	}
}

// AppSettings is everything stored in config.toml.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retrieval RetrievalSettings
}

// DefaultOllamaURL is the default local Ollama endpoint.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultAppSettings returns settings with sensible defaults.
// Both providers default to a local Ollama instance so nothing leaves the
// machine unless the user configures a cloud provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:  DefaultOllamaURL,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
			BaseURL:  DefaultOllamaURL,
		},
		Retrieval: DefaultRetrievalSettings(),
	}
}

// AllLLMProviders lists every provider in wizard order, local first.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini}
}

// AllEmbeddingProviders is AllLLMProviders minus those without an
// embedding API.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, p := range AllLLMProviders() {
		if p.SupportsEmbeddings() {
			out = append(out, p)
		}
	}
	return out
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
		"embedding-001":      768,
	}
}

// PipelineConfig names the ingest stages in order, with optional
// per-stage options keyed by stage name.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns the options for stage name, or nil.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the ingestion pipeline for the given retrieval
// settings: text normalisation followed by chunking.
func PipelineConfigFor(r RetrievalSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"normalise", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": r.ChunkSize,
				"overlap":    r.ChunkOverlap,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultRetrievalSettings())
}
