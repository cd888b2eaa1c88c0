// Package app wires adapters and services into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/researchbot/researchbot/internal/adapters/driven/ai"
	"github.com/researchbot/researchbot/internal/adapters/driven/config/file"
	"github.com/researchbot/researchbot/internal/adapters/driven/extractors/pdf"
	"github.com/researchbot/researchbot/internal/adapters/driven/storage/indexfile"
	"github.com/researchbot/researchbot/internal/adapters/driven/storage/memory"
	"github.com/researchbot/researchbot/internal/adapters/driven/storage/sqlite"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/core/services"
	"github.com/researchbot/researchbot/internal/logger"
	"github.com/researchbot/researchbot/internal/postprocessors"
)

// Config selects where the application keeps its state.
type Config struct {
	// DataDir holds config.toml, prompts/ and data/. Defaults to ~/.researchbot.
	DataDir string

	// Ephemeral keeps the index and history in memory.
	Ephemeral bool
}

// App holds the wired services.
type App struct {
	Settings  *services.SettingsService
	Index     *services.IndexService
	QA        *services.QAService
	Ingest    *services.IngestService
	Extractor *pdf.Extractor

	// IndexPath is where the index is persisted, empty when ephemeral.
	IndexPath string

	closers []func()
}

// New builds the application. Provider problems are logged rather than
// returned so that settings commands keep working with a broken config.
func New(ctx context.Context, cfg Config) (*App, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	logger.Section("Startup")
	logger.Debug("Data dir: %s (ephemeral=%t)", dataDir, cfg.Ephemeral)

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	logger.Debug("Config: %s", configStore.Path())
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	a := &App{Settings: settingsService}

	providers := ai.Init(ctx, settings, false)
	a.closers = append(a.closers, providers.Close)
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(filepath.Join(dataDir, "prompts")); err != nil {
		logger.Warn("prompt templates unavailable, using built-in prompts: %v", err)
	} else {
		prompts = ps
	}

	var (
		indexStore driven.IndexStore
		history    driven.QALogStore
	)
	if cfg.Ephemeral {
		indexStore = memory.NewIndexStore()
		history = memory.NewQALog()
	} else {
		storeDir := filepath.Join(dataDir, "data")
		db, err := sqlite.NewStore(storeDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		history = db
		indexStore = indexfile.NewStore()
		a.IndexPath = filepath.Join(storeDir, indexfile.DefaultFileName)
	}
	a.closers = append(a.closers, func() {
		if err := history.Close(); err != nil {
			logger.Warn("closing history: %v", err)
		}
	})

	a.Index = services.NewIndexService(providers.EmbeddingService, indexStore)
	if a.IndexPath != "" {
		if err := a.Index.Load(ctx, a.IndexPath); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("ignoring stored index: %v", err)
		}
	}

	r := settings.Retrieval
	composer := services.NewComposer(r.MaxContextChars, providers.LLMService)
	composer.SetSummarise(r.Summarise)
	generator := services.NewAnswerGenerator(providers.LLMService)
	generator.SetMaxTokens(r.MaxAnswerTokens)
	if prompts != nil {
		composer.SetPromptStore(prompts)
		generator.SetPromptStore(prompts)
	}

	a.QA = services.NewQAService(a.Index, composer, generator, history)
	a.QA.SetTopK(r.TopK)
	a.QA.SetTimeout(time.Duration(r.TimeoutSeconds) * time.Second)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.FromConfig(registry, settingsService.GetPipelineConfig())
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("Ingest pipeline: %v", pipeline.Stages())

	a.Extractor = pdf.New()
	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("%v\n%s", err, pdf.InstallInstructions())
	}
	a.Ingest = services.NewIngestService(a.Extractor, pipeline, a.Index, a.IndexPath)

	return a, nil
}

// Close releases provider clients and the history database, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
