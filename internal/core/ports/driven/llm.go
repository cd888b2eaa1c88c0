package driven

import "context"

// LLMService is a text generation backend. Answers use Chat so the
// grounding rules can travel as a system turn; summaries use Generate.
// Adapters: OpenAI, Anthropic, Gemini and Ollama.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ModelName() string

	// Ping makes the cheapest request the provider offers. It reports
	// reachability and credentials, not model availability.
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions tunes a single-prompt call. Zero values leave the
// provider default in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

// ChatOptions tunes a chat call, with the same zero-value rule as
// GenerateOptions.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn. Role is RoleSystem, RoleUser or RoleAssistant.
type ChatMessage struct {
	Role    string
	Content string
}
