package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/researchbot/researchbot/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking and retrieval options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the provider that embeds document chunks and questions.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the provider that writes answers and optional passage summaries.`,
	RunE:  runSettingsLLM,
}

var settingsRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Set chunking and retrieval parameters",
	Long: `Update chunking and retrieval parameters. Only the flags given are changed.

Changing chunk size or overlap takes effect on the next ingest.

Examples:
  researchbot settings retrieval --top-k 5
  researchbot settings retrieval --chunk-size 1000 --chunk-overlap 200
  researchbot settings retrieval --summarise`,
	Args: cobra.NoArgs,
	RunE: runSettingsRetrieval,
}

func init() {
	f := settingsRetrievalCmd.Flags()
	f.Int("chunk-size", 0, "maximum chunk length in characters")
	f.Int("chunk-overlap", 0, "characters shared by adjacent chunks")
	f.Int("top-k", 0, "passages retrieved per question")
	f.Int("max-context", 0, "maximum context length in characters")
	f.Bool("summarise", false, "summarise each passage with the LLM before answering")
	f.Int("max-tokens", 0, "maximum answer length in tokens")
	f.Int("timeout", 0, "provider call timeout in seconds")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsRetrievalCmd)
	rootCmd.AddCommand(settingsCmd)
}

var errNoSettings = errors.New("settings service not configured")

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	e, l, r := settings.Embedding, settings.LLM, settings.Retrieval
	section(cmd, "Embedding", providerFields(e.Provider, e.Model, e.BaseURL, e.APIKey, e.IsConfigured()))
	section(cmd, "LLM", providerFields(l.Provider, l.Model, l.BaseURL, l.APIKey, l.IsConfigured()))
	section(cmd, "Retrieval", [][2]string{
		{"Chunk size", strconv.Itoa(r.ChunkSize)},
		{"Chunk overlap", strconv.Itoa(r.ChunkOverlap)},
		{"Top K", strconv.Itoa(r.TopK)},
		{"Max context", fmt.Sprintf("%d chars", r.MaxContextChars)},
		{"Summarise passages", yesNo(r.Summarise)},
		{"Max answer tokens", strconv.Itoa(r.MaxAnswerTokens)},
		{"Timeout", fmt.Sprintf("%ds", r.TimeoutSeconds)},
	})

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'researchbot settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func section(cmd *cobra.Command, title string, fields [][2]string) {
	cmd.Printf("[%s]\n", title)
	for _, f := range fields {
		cmd.Printf("  %s: %s\n", f[0], f[1])
	}
	cmd.Println()
}

func providerFields(p domain.AIProvider, model, baseURL, apiKey string, configured bool) [][2]string {
	fields := [][2]string{{"Provider", p.Description()}, {"Model", model}}
	if p.IsLocal() {
		fields = append(fields, [2]string{"Base URL", baseURL})
	}
	if p.RequiresAPIKey() {
		key := "(not set, or export " + p.APIKeyEnv() + ")"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		fields = append(fields, [2]string{"API Key", key})
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	return append(fields, [2]string{"Status", status})
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	steps := []struct {
		title string
		blurb string
		run   func() error
	}{
		{"Embedding Provider", "Embeddings are used to find the passages relevant to a question.",
			func() error { return embeddingStep().run(cmd, reader) }},
		{"LLM Provider", "The LLM writes answers from the retrieved passages.",
			func() error { return llmStep().run(cmd, reader) }},
		{"Chunking and Retrieval", "", func() error { return configureRetrieval(cmd, reader) }},
	}

	cmd.Println("researchbot settings wizard")
	cmd.Println()
	for i, step := range steps {
		heading := fmt.Sprintf("Step %d: %s", i+1, step.title)
		cmd.Println(heading)
		cmd.Println(strings.Repeat("-", len(heading)))
		if step.blurb != "" {
			cmd.Println(step.blurb)
			cmd.Println()
		}
		if err := step.run(); err != nil {
			return err
		}
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	return embeddingStep().run(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	return llmStep().run(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsRetrieval(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	r := settings.Retrieval

	f := cmd.Flags()
	ints := []struct {
		flag   string
		target *int
	}{
		{"chunk-size", &r.ChunkSize},
		{"chunk-overlap", &r.ChunkOverlap},
		{"top-k", &r.TopK},
		{"max-context", &r.MaxContextChars},
		{"max-tokens", &r.MaxAnswerTokens},
		{"timeout", &r.TimeoutSeconds},
	}
	changed := false
	for _, i := range ints {
		if !f.Changed(i.flag) {
			continue
		}
		v, err := f.GetInt(i.flag)
		if err != nil {
			return err
		}
		*i.target = v
		changed = true
	}
	if f.Changed("summarise") {
		r.Summarise, err = f.GetBool("summarise")
		if err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return errors.New("no retrieval flags given, see --help")
	}

	if err := settingsService.SetRetrieval(r); err != nil {
		return fmt.Errorf("failed to update retrieval settings: %w", err)
	}
	cmd.Println("Retrieval settings updated.")
	return nil
}

// providerStep picks a provider, model and key, saves them and pings the
// result.
type providerStep struct {
	kind    string
	choices []domain.AIProvider
	models  map[domain.AIProvider]string
	set     func(p domain.AIProvider, model, apiKey string) error
	check   func() error
	note    string
}

func embeddingStep() providerStep {
	return providerStep{
		kind:    "Embedding",
		choices: domain.AllEmbeddingProviders(),
		models:  domain.DefaultEmbeddingModels(),
		set:     settingsService.SetEmbeddingProvider,
		check:   settingsService.CheckEmbedding,
		note:    "Re-run 'researchbot ingest' after changing the embedding model.",
	}
}

func llmStep() providerStep {
	return providerStep{
		kind:    "LLM",
		choices: domain.AllLLMProviders(),
		models:  domain.DefaultLLMModels(),
		set:     settingsService.SetLLMProvider,
		check:   settingsService.CheckLLM,
	}
}

func (s providerStep) run(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Printf("Select %s Provider\n", s.kind)
	for i, p := range s.choices {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := s.choices[parseChoice(readLine(reader), len(s.choices), 1)-1]

	model := s.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if typed := readLine(reader); typed != "" {
		model = typed
	}

	apiKey, err := promptAPIKey(cmd, reader, provider)
	if err != nil {
		return err
	}
	if err := s.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", s.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := s.check(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", s.kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", s.kind, provider.Description(), model)
	if s.note != "" {
		cmd.Println(s.note)
	}
	cmd.Println()
	return nil
}

func configureRetrieval(cmd *cobra.Command, reader *bufio.Reader) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	r := settings.Retrieval

	r.ChunkSize = promptInt(cmd, reader, "Chunk size (characters)", r.ChunkSize)
	r.ChunkOverlap = promptInt(cmd, reader, "Chunk overlap (characters)", r.ChunkOverlap)
	r.TopK = promptInt(cmd, reader, "Passages per question", r.TopK)

	if err := settingsService.SetRetrieval(r); err != nil {
		return fmt.Errorf("failed to update retrieval settings: %w", err)
	}
	cmd.Println()
	return nil
}

// promptAPIKey asks for a key when the provider needs one. An empty answer
// is accepted when the provider's environment variable is set.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, p domain.AIProvider) (string, error) {
	if !p.RequiresAPIKey() {
		return "", nil
	}
	fromEnv := os.Getenv(p.APIKeyEnv()) != ""
	if fromEnv {
		cmd.Printf("Enter API key [from %s]: ", p.APIKeyEnv())
	} else {
		cmd.Print("Enter API key: ")
	}
	apiKey := readPassword(reader)
	cmd.Println()
	if apiKey == "" && !fromEnv {
		return "", errors.New("API key is required for this provider")
	}
	return apiKey, nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// parseChoice returns the 1-based choice in input, or def when input is
// blank or out of range.
func parseChoice(input string, n, def int) int {
	v, err := strconv.Atoi(input)
	if err != nil || v < 1 || v > n {
		return def
	}
	return v
}

func promptInt(cmd *cobra.Command, reader *bufio.Reader, label string, current int) int {
	cmd.Printf("%s [%d]: ", label, current)
	val, err := strconv.Atoi(readLine(reader))
	if err != nil || val < 0 {
		return current
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to a plain
// line for pipes and tests.
func readPassword(reader *bufio.Reader) string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if password, err := term.ReadPassword(fd); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
