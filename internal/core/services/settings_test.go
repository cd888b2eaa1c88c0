package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/adapters/driven/storage/memory"
	"github.com/researchbot/researchbot/internal/core/domain"
)

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	gotEmbedding *domain.EmbeddingSettings
	gotLLM       *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(s *domain.EmbeddingSettings) error {
	m.gotEmbedding = s
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(s *domain.LLMSettings) error {
	m.gotLLM = s
	return m.llmErr
}

func newSettings(env map[string]string, seed ...map[string]any) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore(seed...)
	service := NewSettingsService(store, nil)
	service.SetEnvLookup(func(k string) string { return env[k] })
	return service, store
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newSettings(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, _ := newSettings(nil, map[string]any{
		"embedding.provider":          "openai",
		"embedding.model":             "text-embedding-3-large",
		"embedding.api_key":           "sk-file",
		"llm.provider":                "anthropic",
		"retrieval.top_k":             int64(5),
		"retrieval.chunk_overlap":     int64(0),
		"retrieval.summarise":         true,
		"retrieval.max_context_chars": float64(2000),
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, "sk-file", settings.Embedding.APIKey)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], settings.LLM.Model)
	assert.Equal(t, 5, settings.Retrieval.TopK)
	assert.Equal(t, 0, settings.Retrieval.ChunkOverlap, "explicit zero must not fall back to the default")
	assert.True(t, settings.Retrieval.Summarise)
	assert.Equal(t, 2000, settings.Retrieval.MaxContextChars)
	assert.Equal(t, 800, settings.Retrieval.ChunkSize)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	service, _ := newSettings(nil, map[string]any{"embedding.provider": "invalid_provider"})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
}

func TestSettingsService_Get_APIKeyFromEnvironment(t *testing.T) {
	service, _ := newSettings(
		map[string]string{"OPENAI_API_KEY": "sk-env", "GEMINI_API_KEY": "g-env"},
		map[string]any{"embedding.provider": "openai", "llm.provider": "gemini"},
	)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "g-env", settings.LLM.APIKey)
}

func TestSettingsService_Get_FileKeyWinsOverEnvironment(t *testing.T) {
	service, _ := newSettings(
		map[string]string{"OPENAI_API_KEY": "sk-env"},
		map[string]any{"llm.provider": "openai", "llm.api_key": "sk-file"},
	)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-file", settings.LLM.APIKey)
}

func TestSettingsService_SaveAndGet(t *testing.T) {
	service, _ := newSettings(nil)
	want := domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderGemini,
			Model:    "text-embedding-004",
			APIKey:   "g-key",
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			Model:    "mistral",
			BaseURL:  "http://gpu-box:11434",
		},
		Retrieval: domain.RetrievalSettings{
			ChunkSize: 500, ChunkOverlap: 50, TopK: 4, MaxContextChars: 3000,
			Summarise: true, MaxAnswerTokens: 256, TimeoutSeconds: 30,
		},
	}

	require.NoError(t, service.Save(&want))
	got, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKey(t *testing.T) {
	service, store := newSettings(map[string]string{"OPENAI_API_KEY": "sk-env"})

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))

	_, stored := store.Get("llm.api_key")
	assert.False(t, stored)
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.LLM.APIKey)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.AIProvider
		model    string
		apiKey   string
		wantErr  bool
		wantURL  string
	}{
		{"ollama default model", domain.AIProviderOllama, "", "", false, domain.DefaultOllamaURL},
		{"openai with key", domain.AIProviderOpenAI, "text-embedding-3-large", "sk", false, ""},
		{"gemini with key", domain.AIProviderGemini, "", "g", false, ""},
		{"openai without key", domain.AIProviderOpenAI, "", "", true, ""},
		{"anthropic has no embeddings", domain.AIProviderAnthropic, "", "k", true, ""},
		{"unknown provider", domain.AIProvider("cohere"), "", "k", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newSettings(nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			if tt.model != "" {
				assert.Equal(t, tt.model, settings.Embedding.Model)
			} else {
				assert.Equal(t, domain.DefaultEmbeddingModels()[tt.provider], settings.Embedding.Model)
			}
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		service, _ := newSettings(nil)

		require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
		assert.Equal(t, "sk-ant", settings.LLM.APIKey)
		assert.Empty(t, settings.LLM.BaseURL)
	})

	t.Run("missing key", func(t *testing.T) {
		service, _ := newSettings(nil)
		err := service.SetLLMProvider(domain.AIProviderGemini, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		assert.ErrorContains(t, err, domain.AIProviderGemini.APIKeyEnv())
	})

	t.Run("invalid provider", func(t *testing.T) {
		service, _ := newSettings(nil)
		err := service.SetLLMProvider(domain.AIProvider("nope"), "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

func TestSettingsService_SetRetrieval(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		service, _ := newSettings(nil)
		r := domain.DefaultRetrievalSettings()
		r.TopK = 7

		require.NoError(t, service.SetRetrieval(r))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, 7, settings.Retrieval.TopK)
	})

	t.Run("overlap not below size", func(t *testing.T) {
		service, store := newSettings(nil)
		r := domain.DefaultRetrievalSettings()
		r.ChunkOverlap = r.ChunkSize

		err := service.SetRetrieval(r)

		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		_, stored := store.Get("retrieval.chunk_overlap")
		assert.False(t, stored)
	})
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name string
		seed map[string]any
		want error
	}{
		{"defaults", nil, nil},
		{"embedding key missing", map[string]any{"embedding.provider": "openai"}, domain.ErrEmbeddingUnavailable},
		{"llm key missing", map[string]any{"llm.provider": "anthropic"}, domain.ErrLLMUnavailable},
		{"anthropic embeddings", map[string]any{"embedding.provider": "anthropic", "embedding.api_key": "k"}, domain.ErrEmbeddingUnavailable},
		{"bad retrieval", map[string]any{"retrieval.top_k": int64(0)}, domain.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newSettings(nil, tt.seed)

			err := service.Validate()

			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSettingsService_CheckProviders(t *testing.T) {
	t.Run("no validator", func(t *testing.T) {
		service, _ := newSettings(nil)
		assert.NoError(t, service.CheckEmbedding())
		assert.NoError(t, service.CheckLLM())
	})

	t.Run("delegates current settings", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"llm.model": "phi3"})
		validator := &mockAIValidator{embeddingErr: errors.New("unreachable")}
		service := NewSettingsService(store, validator)

		assert.Error(t, service.CheckEmbedding())
		assert.NoError(t, service.CheckLLM())
		require.NotNil(t, validator.gotLLM)
		assert.Equal(t, "phi3", validator.gotLLM.Model)
		assert.Equal(t, domain.AIProviderOllama, validator.gotEmbedding.Provider)
	})
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	service, _ := newSettings(nil, map[string]any{
		"retrieval.chunk_size":    int64(300),
		"retrieval.chunk_overlap": int64(30),
	})

	cfg := service.GetPipelineConfig()

	assert.Equal(t, []string{"normalise", "chunker"}, cfg.Processors)
	chunkerCfg := cfg.GetProcessorConfig("chunker")
	assert.Equal(t, 300, chunkerCfg["chunk_size"])
	assert.Equal(t, 30, chunkerCfg["overlap"])
}

func TestSettingsService_SetLLMProviderKeepsLocalURL(t *testing.T) {
	service, _ := newSettings(nil, map[string]any{"llm.base_url": "http://gpu-box:11434"})

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "mistral", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.BaseURL)
	assert.Equal(t, "mistral", settings.LLM.Model)
}

// readOnlyConfig rejects every write.
type readOnlyConfig struct {
	*memory.ConfigStore
}

func (readOnlyConfig) Update(map[string]any) error { return errors.New("read-only file system") }

func TestSettingsService_SaveFailureIsStorageError(t *testing.T) {
	service := NewSettingsService(readOnlyConfig{memory.NewConfigStore()}, nil)

	err := service.SetLLMProvider(domain.AIProviderOllama, "mistral", "")
	assert.ErrorIs(t, err, domain.ErrStorage)

	err = service.SetRetrieval(domain.DefaultRetrievalSettings())
	assert.ErrorIs(t, err, domain.ErrStorage)
}
