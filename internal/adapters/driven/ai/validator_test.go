package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/researchbot/researchbot/internal/core/domain"
)

func TestConfigValidator_NothingToValidate(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Model: "m"}))
}

func TestConfigValidator_Ollama(t *testing.T) {
	up := ollamaStub(t, http.StatusOK)
	down := ollamaStub(t, http.StatusServiceUnavailable)
	v := NewConfigValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"reachable", up.URL, false},
		{"unhealthy", down.URL, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedErr := v.ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: tt.url})
			llmErr := v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: tt.url, Model: "llama3.2"})
			if tt.wantErr {
				assert.ErrorContains(t, embedErr, "status 503")
				assert.ErrorContains(t, llmErr, "ollama did not answer")
				return
			}
			assert.NoError(t, embedErr)
			assert.NoError(t, llmErr)
		})
	}
}

func TestConfigValidator_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	v := &ConfigValidator{timeout: 50 * time.Millisecond}
	err := v.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: slow.URL})

	assert.ErrorContains(t, err, "did not answer within 50ms")
}

func TestConfigValidator_ProviderWithoutEmbeddings(t *testing.T) {
	err := NewConfigValidator().ValidateEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
