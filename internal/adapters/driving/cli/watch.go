package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchbot/researchbot/internal/adapters/driving/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-index a directory whenever its PDFs change",
	Long: `Ingests every PDF under the directory, then watches it and rebuilds the
index after files are added, changed, removed or renamed. Queries made
while a rebuild runs keep using the previous index.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce,
		"wait this long for changes to settle before re-indexing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	supports := supportsFile
	if supports == nil {
		supports = func(string) bool { return true }
	}
	w, err := watcher.New(dir, supports, watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reindex := func(ctx context.Context) error {
		report, err := ingestService.Ingest(ctx, []string{dir})
		if err != nil {
			cmd.PrintErrf("Re-index failed: %v\n", err)
			return err
		}
		cmd.Printf("[%s] Indexed %d chunks from %d document(s)\n",
			time.Now().Format("15:04:05"), report.Chunks, len(report.Documents))
		return nil
	}

	// An empty directory is not an error here; the index is built once
	// PDFs appear.
	_ = reindex(ctx) //nolint:errcheck

	cmd.Printf("Watching %s for changes...\n", dir)
	return w.Run(ctx, reindex)
}
