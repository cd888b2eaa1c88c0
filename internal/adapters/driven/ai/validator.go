package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the service and
// pinging it. Settings that name no provider pass without a network call.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that gives each ping pingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedding provider described by settings.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(context.Background(), settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(settings.Provider, svc.Ping)
}

// ValidateLLM pings the LLM provider described by settings.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(context.Background(), settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(settings.Provider, svc.Ping)
}

func (v *ConfigValidator) ping(provider domain.AIProvider, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := ping(ctx); err != nil {
		return fmt.Errorf("%s did not answer within %s: %w", provider, v.timeout, err)
	}
	return nil
}
