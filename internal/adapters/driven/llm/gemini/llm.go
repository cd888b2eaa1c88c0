// Package gemini provides an LLM service adapter using the Google Generative AI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/researchbot/researchbot/internal/adapters/driven/resilience"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// errEmptyResponse is returned when no candidate carries text, e.g. when
// the reply was blocked by safety filters.
var errEmptyResponse = errors.New("gemini: empty response")

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the LLM model to use (default: gemini-1.5-flash).
	Model string

	// RequestsPerMinute caps the request rate (default: 60).
	RequestsPerMinute int
}

// request is one generation call in SDK-neutral form.
type request struct {
	system      string
	history     []*genai.Content
	prompt      string
	maxTokens   int
	temperature float64
	stop        []string
}

// generateAPI is the slice of the SDK the service uses.
type generateAPI interface {
	generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
	info(ctx context.Context) error
	close() error
}

// LLMService provides LLM operations using Gemini.
type LLMService struct {
	api   generateAPI
	guard *resilience.Guard
	model string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrInvalidConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newLLMService(&sdkGenerator{client: client, model: cfg.Model}, cfg), nil
}

func newLLMService(api generateAPI, cfg Config) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{
		api: api,
		guard: resilience.New(resilience.Config{
			Name:              "gemini-llm",
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		model: cfg.Model,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.send(ctx, request{
		prompt:      prompt,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		stop:        opts.StopWords,
	})
}

// Chat conducts a multi-turn conversation. The last message must come from the user.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req, err := buildRequest(messages)
	if err != nil {
		return "", err
	}
	req.maxTokens = opts.MaxTokens
	req.temperature = opts.Temperature
	return s.send(ctx, req)
}

func (s *LLMService) send(ctx context.Context, req request) (string, error) {
	resp, err := resilience.Do(ctx, s.guard, func() (*genai.GenerateContentResponse, error) {
		return s.api.generate(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return responseText(resp)
}

// buildRequest maps chat messages onto a system instruction, prior turns and
// the prompt to send.
func buildRequest(messages []driven.ChatMessage) (request, error) {
	var req request
	var system []string
	var turns []driven.ChatMessage

	for _, msg := range messages {
		if msg.Role == driven.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != driven.RoleUser {
		return request{}, fmt.Errorf("%w: conversation must end with a user message", domain.ErrInvalidInput)
	}

	req.system = strings.Join(system, "\n\n")
	req.prompt = turns[len(turns)-1].Content
	for _, msg := range turns[:len(turns)-1] {
		role := "user"
		if msg.Role == driven.RoleAssistant {
			role = "model"
		}
		req.history = append(req.history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return req, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errEmptyResponse
	}
	return sb.String(), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.api.info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	return s.api.close()
}

type sdkGenerator struct {
	client *genai.Client
	model  string
}

func (g *sdkGenerator) generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	model := g.client.GenerativeModel(g.model)
	if req.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.maxTokens))
	}
	if req.temperature > 0 {
		model.SetTemperature(float32(req.temperature))
	}
	if len(req.stop) > 0 {
		model.StopSequences = req.stop
	}
	if req.system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.system)}}
	}

	if len(req.history) == 0 {
		return model.GenerateContent(ctx, genai.Text(req.prompt))
	}
	cs := model.StartChat()
	cs.History = req.history
	return cs.SendMessage(ctx, genai.Text(req.prompt))
}

func (g *sdkGenerator) info(ctx context.Context) error {
	_, err := g.client.GenerativeModel(g.model).Info(ctx)
	return err
}

func (g *sdkGenerator) close() error {
	return g.client.Close()
}
