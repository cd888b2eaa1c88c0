package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/researchbot/researchbot/internal/core/domain"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show previously asked questions",
	Long:  `Lists every question asked and the answer given, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most this many entries (0 = all)")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(historyCmd)
}

type historyEntry struct {
	ID        int64  `json:"id" yaml:"id"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Question  string `json:"question" yaml:"question"`
	Answer    string `json:"answer" yaml:"answer"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if qaService == nil {
		return errNotConfigured("QA")
	}

	records, err := qaService.History(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	entries := make([]historyEntry, len(records))
	for i, r := range records {
		entries[i] = historyEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp.Format(time.RFC3339),
			Question:  r.Question,
			Answer:    r.Answer,
		}
	}

	switch historyOutput {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Print(string(data))
	case "text", "":
		outputHistoryText(cmd, records)
	default:
		return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, historyOutput)
	}
	return nil
}

func outputHistoryText(cmd *cobra.Command, records []domain.QARecord) {
	if len(records) == 0 {
		cmd.Println("No questions asked yet.")
		return
	}
	for _, r := range records {
		cmd.Printf("#%d  %s\n", r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		cmd.Printf("  Q: %s\n", r.Question)
		cmd.Printf("  A: %s\n", snippet(r.Answer, 2*snippetLen))
		cmd.Println()
	}
}
