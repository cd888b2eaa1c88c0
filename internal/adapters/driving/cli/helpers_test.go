package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/researchbot/researchbot/internal/adapters/driven/storage/memory"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/services"
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer     *domain.Answer
	err        error
	records    []domain.QARecord
	historyErr error
	calls      *[]string
}

func (m *mockQAService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, "ask:"+question)
	}
	if m.err != nil {
		return nil, m.err
	}
	a := *m.answer
	a.Question = question
	return &a, nil
}

func (m *mockQAService) History(_ context.Context) ([]domain.QARecord, error) {
	return m.records, m.historyErr
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	paths  [][]string
	calls  *[]string
}

func (m *mockIngestService) Ingest(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.paths = append(m.paths, paths)
	if m.calls != nil {
		*m.calls = append(*m.calls, "ingest:"+strings.Join(paths, ","))
	}
	return m.report, m.err
}

func testAnswer() *domain.Answer {
	return &domain.Answer{
		Text: "Paris is the capital of France [Source 1].",
		Sources: []domain.RetrievedChunk{{
			Chunk: domain.Chunk{
				Content:  "Paris is the capital\nof France.",
				Position: 2,
				Metadata: map[string]any{"source": "/docs/europe.pdf"},
			},
			Score: 0.87,
			Rank:  1,
		}},
		Record: &domain.QARecord{ID: 1},
	}
}

func testRecords() []domain.QARecord {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domain.QARecord{
		{ID: 3, Question: "third?", Answer: "C", Timestamp: ts.Add(2 * time.Minute)},
		{ID: 2, Question: "second?", Answer: "B", Timestamp: ts.Add(time.Minute)},
		{ID: 1, Question: "first?", Answer: "A", Timestamp: ts},
	}
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	qa       *mockQAService
	ingest   *mockIngestService
	settings *services.SettingsService
	calls    []string
}

// setupTestServices installs mock services and returns them with a cleanup
// function that clears them.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{}
	ts.qa = &mockQAService{answer: testAnswer(), records: testRecords(), calls: &ts.calls}
	ts.ingest = &mockIngestService{
		report: &domain.IngestReport{
			Documents: []string{"/docs/europe.pdf"},
			Pages:     4,
			Chunks:    12,
			IndexPath: "/data/index.rbi",
			Duration:  1500 * time.Millisecond,
		},
		calls: &ts.calls,
	}
	ts.settings = services.NewSettingsService(memory.NewConfigStore(), nil)
	ts.settings.SetEnvLookup(func(string) string { return "" })

	SetServices(&Services{
		Settings: ts.settings,
		QA:       ts.qa,
		Ingest:   ts.ingest,
	})
	return ts, func() { SetServices(nil) }
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil) //nolint:errcheck
		} else {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
