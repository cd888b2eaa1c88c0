// Command researchbot answers questions about PDF documents.
package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/researchbot/researchbot/internal/adapters/driving/cli"
	"github.com/researchbot/researchbot/internal/app"
	"github.com/researchbot/researchbot/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env file in the working directory may supply API keys.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("reading .env: %v", err)
	}

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	cli.Execute()
}

func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	a, err := app.New(ctx, app.Config{DataDir: opts.DataDir, Ephemeral: opts.Ephemeral})
	if err != nil {
		return nil, nil, err
	}
	return &cli.Services{
		Settings: a.Settings,
		QA:       a.QA,
		Ingest:   a.Ingest,
		Index:    a.Index,
		Supports: a.Extractor.Supports,
	}, a.Close, nil
}
