// Package gemini provides an embedding service adapter using the Google
// Generative AI API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/researchbot/researchbot/internal/adapters/driven/resilience"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768

	// maxBatch is the API limit on texts per BatchEmbedContents call.
	maxBatch = 100
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Dimensions is the expected vector size.
	Dimensions int

	// RequestsPerMinute caps the request rate (default: 60).
	RequestsPerMinute int
}

// embedAPI is the slice of the SDK the service uses.
type embedAPI interface {
	embedBatch(ctx context.Context, texts []string) ([][]float32, error)
	info(ctx context.Context) error
	close() error
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	api        embedAPI
	guard      *resilience.Guard
	model      string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
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

	api := &sdkEmbedder{client: client, model: client.EmbeddingModel(cfg.Model)}
	return newEmbeddingService(api, cfg), nil
}

func newEmbeddingService(api embedAPI, cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		api: api,
		guard: resilience.New(resilience.Config{
			Name:              "gemini-embedding",
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in groups of at most 100 per request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		batch := texts[start:min(start+maxBatch, len(texts))]

		vectors, err := resilience.Do(ctx, s.guard, func() ([][]float32, error) {
			return s.api.embedBatch(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: embed: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping fetches the model's metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.api.info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	return s.api.close()
}

type sdkEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func (e *sdkEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *sdkEmbedder) info(ctx context.Context) error {
	_, err := e.model.Info(ctx)
	return err
}

func (e *sdkEmbedder) close() error {
	return e.client.Close()
}
