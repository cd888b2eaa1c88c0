package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index PDF documents",
	Long: `Extracts the text of the given PDF files, splits it into overlapping
chunks and embeds each chunk. Directories are searched recursively for PDFs.

The new index replaces the previous one. If ingestion fails the previous
index is kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	report, err := ingestService.Ingest(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %d document(s), %d page(s)\n", len(report.Documents), report.Pages)
	for _, d := range report.Documents {
		cmd.Printf("  - %s\n", filepath.Base(d))
	}
	cmd.Printf("Indexed %d chunks in %s\n", report.Chunks, report.Duration.Round(time.Millisecond))
	if report.IndexPath != "" {
		cmd.Printf("Index saved to %s\n", report.IndexPath)
	}
	return nil
}
