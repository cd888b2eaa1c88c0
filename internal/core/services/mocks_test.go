package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// --- Mock implementations ---

// keywordEmbedder implements driven.EmbeddingService with one dimension per
// keyword plus a constant bias dimension, so no vector is ever zero.
type keywordEmbedder struct {
	mu       sync.Mutex
	keywords []string
	model    string
	calls    int
	batches  []int
	err      error
	// short, when set, drops the last vector of every batch.
	short    bool
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords, model: "keyword-test"}
}

func (m *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(m.keywords)+1)
	v[len(m.keywords)] = 1
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for i, k := range m.keywords {
			if w == k {
				v[i]++
			}
		}
	}
	return v
}

func (m *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, len(texts))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *keywordEmbedder) Dimensions() int { return len(m.keywords) + 1 }

func (m *keywordEmbedder) ModelName() string { return m.model }

func (m *keywordEmbedder) Ping(_ context.Context) error { return nil }

func (m *keywordEmbedder) Close() error { return nil }

// mockLLM implements driven.LLMService and records every call.
type mockLLM struct {
	mu          sync.Mutex
	generateOut func(prompt string) (string, error)
	chatOut     func(messages []driven.ChatMessage) (string, error)
	prompts     []string
	chats       [][]driven.ChatMessage
	chatOpts    []driven.ChatOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.generateOut == nil {
		return "", errors.New("generate not configured")
	}
	return m.generateOut(prompt)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.chats = append(m.chats, messages)
	m.chatOpts = append(m.chatOpts, opts)
	m.mu.Unlock()
	if m.chatOut == nil {
		return "", errors.New("chat not configured")
	}
	return m.chatOut(messages)
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts) + len(m.chats)
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

// mockExtractor implements driven.TextExtractor from a map of file name to
// text. Unknown files fail with ErrDocumentExtraction.
type mockExtractor struct {
	texts     map[string]string
	extracted []string
}

func (m *mockExtractor) Extract(_ context.Context, path string) (*domain.Document, error) {
	m.extracted = append(m.extracted, path)
	text, ok := m.texts[filepath.Base(path)]
	if !ok {
		return nil, domain.ErrDocumentExtraction
	}
	return &domain.Document{
		ID:      "doc-" + filepath.Base(path),
		URI:     path,
		Content: text,
		Pages:   1,
	}, nil
}

func (m *mockExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// failingQALog implements driven.QALogStore and rejects every append.
type failingQALog struct{}

func (failingQALog) Append(_ context.Context, _, _ string) (domain.QARecord, error) {
	return domain.QARecord{}, domain.ErrStorage
}

func (failingQALog) All(_ context.Context) ([]domain.QARecord, error) {
	return nil, domain.ErrStorage
}

func (failingQALog) Close() error { return nil }

// stubRetriever implements driving.Retriever with fixed results.
type stubRetriever struct {
	results []domain.RetrievedChunk
	err     error
	gotK    int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievedChunk, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.results[:min(k, len(s.results))], nil
}

// --- Test helpers ---

func chunksOf(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{ID: "c" + string(rune('a'+i)), Content: t, Position: i}
	}
	return chunks
}

func retrievedOf(texts ...string) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, len(texts))
	for i, c := range chunksOf(texts...) {
		out[i] = domain.RetrievedChunk{Chunk: c, Score: 1 - float64(i)/10, Rank: i + 1}
	}
	return out
}
