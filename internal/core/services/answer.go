package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure AnswerGenerator supports custom prompts.
var _ driven.PromptStoreAware = (*AnswerGenerator)(nil)

// Answer generation defaults.
const (
	DefaultMaxAnswerTokens = 512
	answerTemperature      = 0.3
)

// AnswerGenerator produces grounded answers from a question and its context.
type AnswerGenerator struct {
	llm       driven.LLMService
	prompts   driven.PromptStore
	maxTokens int
}

// NewAnswerGenerator creates a generator backed by llm.
func NewAnswerGenerator(llm driven.LLMService) *AnswerGenerator {
	return &AnswerGenerator{
		llm:       llm,
		maxTokens: DefaultMaxAnswerTokens,
	}
}

// SetMaxTokens bounds the answer length.
func (g *AnswerGenerator) SetMaxTokens(n int) {
	if n > 0 {
		g.maxTokens = n
	}
}

// SetPromptStore sets the prompt store for the answer templates.
func (g *AnswerGenerator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// Generate answers question using only contextText.
// A blank context yields domain.InsufficientContextAnswer without calling
// the provider. The provider's reply is returned as is, trimmed; citations
// are not checked.
func (g *AnswerGenerator) Generate(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		logger.Debug("Empty context, skipping generation")
		return domain.InsufficientContextAnswer, nil
	}
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	logger.Section("Answer Generation")
	logger.Debug("Model: %s, max tokens: %d", g.llm.ModelName(), g.maxTokens)

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(g.prompts, driven.PromptAnswerSystem)},
		{Role: driven.RoleUser, Content: fmt.Sprintf(loadPrompt(g.prompts, driven.PromptAnswerUser), contextText, question)},
	}

	answer, err := g.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   g.maxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
	}

	return strings.TrimSpace(answer), nil
}
