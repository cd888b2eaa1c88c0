package mcp

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer     *domain.Answer
	records    []domain.QARecord
	err        error
	historyErr error
	asked      []string
}

func (m *mockQAService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	return m.answer, m.err
}

func (m *mockQAService) History(_ context.Context) ([]domain.QARecord, error) {
	return m.records, m.historyErr
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	results  []domain.RetrievedChunk
	info     domain.IndexInfo
	err      error
	gotK     int
}

func (m *mockIndexService) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedChunk, error) {
	m.gotK = k
	return m.results, m.err
}

func (m *mockIndexService) Query(ctx context.Context, q string, k int) ([]domain.RetrievedChunk, error) {
	return m.Retrieve(ctx, q, k)
}

func (m *mockIndexService) Build(_ context.Context, _ []domain.Chunk) error { return m.err }

func (m *mockIndexService) Save(_ context.Context, _ string) error { return m.err }

func (m *mockIndexService) Load(_ context.Context, _ string) error { return m.err }

func (m *mockIndexService) Info() domain.IndexInfo { return m.info }
