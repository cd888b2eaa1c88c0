// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/researchbot/researchbot/internal/adapters/driven/httpapi"
	"github.com/researchbot/researchbot/internal/adapters/driven/resilience"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	fallbackDimensions = 1536
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the service. Only APIKey is required.
type Config struct {
	APIKey string

	// BaseURL points at a compatible server such as Azure OpenAI.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Other models ignore it.
	Dimensions int

	// RequestsPerMinute caps the request rate (default: 60).
	RequestsPerMinute int
}

// EmbeddingService embeds batches through /embeddings.
type EmbeddingService struct {
	api        *httpapi.Client
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates the service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrInvalidConfiguration)
	}
	model := cmp.Or(cfg.Model, DefaultModel)
	guard := resilience.New(resilience.Config{
		Name:              "openai-embeddings",
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	api := httpapi.New("openai",
		cmp.Or(cfg.BaseURL, DefaultBaseURL),
		cmp.Or(cfg.Timeout, DefaultTimeout),
		httpapi.WithBearer(cfg.APIKey),
		httpapi.WithGuard(guard),
	)
	return &EmbeddingService{
		api:        api,
		model:      model,
		dimensions: cmp.Or(cfg.Dimensions, modelDimensions[model], fallbackDimensions),
	}, nil
}

// Embed embeds one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in one request. The API may return items in
// any order, so each vector is placed by its index.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		req.Dimensions = s.dimensions
	}

	var out embeddingResponse
	if err := s.api.Post(ctx, "/embeddings", req, &out); err != nil {
		return nil, err
	}
	if n := len(out.Data); n != len(texts) {
		return nil, fmt.Errorf("openai: %d inputs produced %d vectors", len(texts), n)
	}

	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vectors) || vectors[item.Index] != nil {
			return nil, fmt.Errorf("openai: unexpected embedding index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models to check the key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/models")
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
