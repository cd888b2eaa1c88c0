// Package cli implements the researchbot command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driving"
	"github.com/researchbot/researchbot/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services configured by the bootstrap hook before a command runs.
var (
	settingsService driving.SettingsService
	qaService       driving.QAService
	ingestService   driving.IngestService
	indexService    driving.IndexService
	supportsFile    func(path string) bool
)

// Services bundles the driving ports the commands use.
type Services struct {
	Settings driving.SettingsService
	QA       driving.QAService
	Ingest   driving.IngestService
	Index    driving.IndexService

	// Supports reports whether a file can be ingested. Used by watch.
	Supports func(path string) bool
}

// Options are the global flags passed to the bootstrap hook.
type Options struct {
	DataDir   string
	Ephemeral bool
	Verbose   bool
}

// BootstrapFunc builds the services for a command run. The returned cleanup
// function is called after the command finishes.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	bootstrap BootstrapFunc
	cleanup   func()
	opts      Options
)

var rootCmd = &cobra.Command{
	Use:   "researchbot",
	Short: "Ask questions about your PDF documents",
	Long: `researchbot answers questions from the PDF documents you give it.

Documents are split into overlapping chunks, embedded and indexed locally.
Each question retrieves the most similar chunks and an LLM answers using
only that context, citing passages as [Source N].

  researchbot ingest paper.pdf
  researchbot ask "What is the main finding?"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: runBootstrap,
	PersistentPostRun: func(_ *cobra.Command, _ []string) { runCleanup() },
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print pipeline diagnostics to stderr")
	flags.BoolVar(&opts.Ephemeral, "ephemeral", false, "keep the index and history in memory only")
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.researchbot)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the hook that builds services before each command.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing the bootstrap hook.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	qaService = s.QA
	ingestService = s.Ingest
	indexService = s.Index
	supportsFile = s.Supports
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	runCleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", domain.UserMessage(err))
		logger.Debug("%v", err)
		os.Exit(1)
	}
}

// skipBootstrap marks commands that need no services.
const skipBootstrap = "skip-bootstrap"

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	services, done, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = done
	return nil
}

// errNotConfigured is returned by commands whose service was not wired.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}
