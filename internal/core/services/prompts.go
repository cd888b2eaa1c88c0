package services

import (
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

// loadPrompt returns the named template from store, or the built-in default
// when the store is nil or fails.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		prompt, err := store.Load(name)
		if err == nil && prompt != "" {
			return prompt
		}
		if err != nil {
			logger.Warn("Prompt %q unavailable, using default: %v", name, err)
		}
	}
	return driven.DefaultPrompts[name]
}
