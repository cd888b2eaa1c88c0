package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure Composer supports custom prompts.
var _ driven.PromptStoreAware = (*Composer)(nil)

// Summary generation settings.
const (
	summaryMaxTokens   = 120
	summaryTemperature = 0.2
)

// blockSeparator joins context blocks.
const blockSeparator = "\n\n"

// Composer turns retrieved chunks into a bounded context string made of
// "[Source i]" blocks in retrieval order.
type Composer struct {
	maxChars  int
	summarise bool
	llm       driven.LLMService
	prompts   driven.PromptStore
}

// NewComposer creates a composer with a budget of maxChars runes.
// The llm is only used when summarisation is enabled and may be nil.
func NewComposer(maxChars int, llm driven.LLMService) *Composer {
	return &Composer{
		maxChars: maxChars,
		llm:      llm,
	}
}

// SetSummarise enables or disables per-chunk summaries.
func (c *Composer) SetSummarise(enabled bool) {
	c.summarise = enabled
}

// SetPromptStore sets the prompt store for the summary template.
func (c *Composer) SetPromptStore(store driven.PromptStore) {
	c.prompts = store
}

// Compose builds the context for retrieved chunks.
//
// Blocks that do not fit the budget are dropped from the end, so the least
// relevant chunks go first. If even the first block is too long, its text is
// truncated. When summaries are enabled but cannot be produced for every
// chunk, the verbatim text is used instead; composition itself never fails.
func (c *Composer) Compose(ctx context.Context, retrieved []domain.RetrievedChunk) string {
	if len(retrieved) == 0 {
		return ""
	}

	var blocks []string
	if c.summarise {
		summaries, err := c.summaries(ctx, retrieved)
		if err != nil {
			logger.Warn("Summarisation failed, using verbatim context: %v", err)
		} else {
			blocks = summaries
		}
	}
	if blocks == nil {
		blocks = make([]string, len(retrieved))
		for i, r := range retrieved {
			blocks[i] = sourceTag(i+1) + " " + strings.TrimSpace(r.Chunk.Content)
		}
	}

	out := c.fit(blocks)
	logger.Debug("Composed context: %d chars from %d chunks", len([]rune(out)), len(retrieved))
	return out
}

// summaries asks the LLM for a short summary of each chunk. Any failure
// aborts the whole set.
func (c *Composer) summaries(ctx context.Context, retrieved []domain.RetrievedChunk) ([]string, error) {
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	template := loadPrompt(c.prompts, driven.PromptSummarise)
	out := make([]string, len(retrieved))

	for i, r := range retrieved {
		n := i + 1
		prompt := fmt.Sprintf(template, n, r.Chunk.Content)
		summary, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{
			MaxTokens:   summaryMaxTokens,
			Temperature: summaryTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: summarise source %d: %w", domain.ErrGenerationProvider, n, err)
		}
		summary = strings.TrimSpace(summary)
		if summary == "" {
			return nil, fmt.Errorf("%w: empty summary for source %d", domain.ErrGenerationProvider, n)
		}
		tag := sourceTag(n)
		if !strings.Contains(summary, tag) {
			summary = tag + " " + summary
		}
		out[i] = summary
	}

	return out, nil
}

// fit joins as many leading blocks as fit in the budget.
func (c *Composer) fit(blocks []string) string {
	if c.maxChars <= 0 {
		return strings.Join(blocks, blockSeparator)
	}

	sep := len([]rune(blockSeparator))
	used := 0
	kept := 0
	for _, b := range blocks {
		n := len([]rune(b))
		if kept > 0 {
			n += sep
		}
		if used+n > c.maxChars {
			break
		}
		used += n
		kept++
	}

	if kept == 0 {
		first := []rune(blocks[0])
		return string(first[:c.maxChars])
	}
	if kept < len(blocks) {
		logger.Debug("Context budget %d reached, dropped %d trailing blocks", c.maxChars, len(blocks)-kept)
	}
	return strings.Join(blocks[:kept], blockSeparator)
}

func sourceTag(n int) string {
	return fmt.Sprintf("[Source %d]", n)
}
