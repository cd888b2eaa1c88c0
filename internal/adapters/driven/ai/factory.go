// Package ai turns provider settings into embedding and LLM services.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/researchbot/researchbot/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/researchbot/researchbot/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/researchbot/researchbot/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/researchbot/researchbot/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/researchbot/researchbot/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/researchbot/researchbot/internal/adapters/driven/llm/ollama"
	openaillm "github.com/researchbot/researchbot/internal/adapters/driven/llm/openai"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

type (
	embeddingCtor func(context.Context, *domain.EmbeddingSettings) (driven.EmbeddingService, error)
	llmCtor       func(context.Context, *domain.LLMSettings) (driven.LLMService, error)
)

var embeddingCtors = map[domain.AIProvider]embeddingCtor{
	domain.AIProviderOllama: ollamaEmbedding,
	domain.AIProviderOpenAI: openaiEmbedding,
	domain.AIProviderGemini: geminiEmbedding,
}

var llmCtors = map[domain.AIProvider]llmCtor{
	domain.AIProviderOllama:    ollamaLLM,
	domain.AIProviderOpenAI:    openaiLLM,
	domain.AIProviderAnthropic: anthropicLLM,
	domain.AIProviderGemini:    geminiLLM,
}

// InitResult holds whichever services could be built.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // one per service left nil because building it failed
}

// Close closes the services that were built.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds both services from settings. A failure leaves that service
// nil and adds a warning; callers decide whether that is fatal. With
// validate set, each service must also answer a ping.
func Init(ctx context.Context, settings *domain.AppSettings, validate bool) *InitResult {
	result := &InitResult{}
	if settings == nil {
		return result
	}

	embed, llm := CreateEmbeddingService, CreateLLMService
	if validate {
		embed, llm = CreateAndValidateEmbeddingService, CreateAndValidateLLMService
	}

	var err error
	if result.EmbeddingService, err = embed(ctx, &settings.Embedding); err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if result.LLMService, err = llm(ctx, &settings.LLM); err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	return result
}

// CreateEmbeddingService builds the configured embedding service, or
// returns nil when no usable provider is configured. Naming a provider
// without an embedding API is an error.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider.IsValid() && !settings.Provider.SupportsEmbeddings() {
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama, openai or gemini",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}
	svc, err := embeddingCtors[settings.Provider](ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateLLMService builds the configured LLM service, or returns nil when
// no usable provider is configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	svc, err := llmCtors[settings.Provider](ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateEmbeddingService is CreateEmbeddingService plus a ping.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return nil, err
	}
	if err := ping(ctx, svc, domain.ErrEmbeddingUnavailable); err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateAndValidateLLMService is CreateLLMService plus a ping.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return nil, err
	}
	if err := ping(ctx, svc, domain.ErrLLMUnavailable); err != nil {
		return nil, err
	}
	return svc, nil
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ping closes svc when it does not answer within pingTimeout.
func ping(ctx context.Context, svc pinger, kind error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return fmt.Errorf("%w: service unreachable (%w). Run 'researchbot settings wizard' to fix", kind, err)
	}
	return nil
}

func ollamaEmbedding(_ context.Context, s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[s.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    s.BaseURL,
		Model:      s.Model,
		Dimensions: dimensions,
	}), nil
}

func openaiEmbedding(_ context.Context, s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     s.APIKey,
		BaseURL:    s.BaseURL,
		Model:      s.Model,
		Dimensions: domain.EmbeddingDimensions()[s.Model],
	})
}

func geminiEmbedding(ctx context.Context, s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:     s.APIKey,
		Model:      s.Model,
		Dimensions: domain.EmbeddingDimensions()[s.Model],
	})
}

func ollamaLLM(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
}

func openaiLLM(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
}

func anthropicLLM(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
}

func geminiLLM(ctx context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
	return geminillm.NewLLMService(ctx, geminillm.Config{APIKey: s.APIKey, Model: s.Model})
}
