package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/researchbot/researchbot/internal/core/domain"
)

var (
	askPDFs        []string
	askJSON        bool
	askHideSources bool
)

// snippetLen bounds the passage preview printed under each source.
const snippetLen = 160

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the passages most similar to the question and asks the LLM to
answer using only those passages. Passages are cited as [Source N].

Use --pdf to ingest documents before asking, replacing the current index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askPDFs, "pdf", nil, "PDF files or directories to ingest first")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askHideSources, "no-sources", false, "do not print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []sourceOutput `json:"sources"`
	Logged   bool           `json:"logged"`
}

type sourceOutput struct {
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Source   string  `json:"source,omitempty"`
	Position int     `json:"position"`
	Content  string  `json:"content"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errNotConfigured("QA")
	}
	question := strings.Join(args, " ")

	if len(askPDFs) > 0 {
		if ingestService == nil {
			return errNotConfigured("ingest")
		}
		report, err := ingestService.Ingest(cmd.Context(), askPDFs)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if !askJSON {
			cmd.Printf("Indexed %d chunks from %d document(s).\n\n", report.Chunks, len(report.Documents))
		}
	}

	answer, err := qaService.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}
	if answer.LogErr != nil {
		cmd.PrintErrf("Warning: answer not saved to history: %v\n", answer.LogErr)
	}

	if askJSON {
		return outputAskJSON(cmd, answer)
	}
	outputAskText(cmd, answer)
	return nil
}

func toSourceOutputs(sources []domain.RetrievedChunk) []sourceOutput {
	out := make([]sourceOutput, len(sources))
	for i, s := range sources {
		src, _ := s.Chunk.Metadata["source"].(string)
		out[i] = sourceOutput{
			Rank:     s.Rank,
			Score:    s.Score,
			Source:   src,
			Position: s.Chunk.Position,
			Content:  s.Chunk.Content,
		}
	}
	return out
}

func outputAskJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(askOutput{
		Question: answer.Question,
		Answer:   answer.Text,
		Sources:  toSourceOutputs(answer.Sources),
		Logged:   answer.Record != nil,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAskText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	if askHideSources || len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for _, s := range toSourceOutputs(answer.Sources) {
		name := "document"
		if s.Source != "" {
			name = sourceNames(s.Source)
		}
		cmd.Printf("  [Source %d] %s (%.2f)\n", s.Rank, name, s.Score)
		cmd.Printf("      %s\n", snippet(s.Content, snippetLen))
	}
}

// sourceNames shortens a comma separated file list to base names.
func sourceNames(source string) string {
	parts := strings.Split(source, ",")
	for i, p := range parts {
		parts[i] = filepath.Base(p)
	}
	return strings.Join(parts, ", ")
}

// snippet flattens whitespace and truncates s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
