package services

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/core/ports/driving"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure IndexService implements the interfaces.
var (
	_ driving.IndexService = (*IndexService)(nil)
	_ driving.Retriever    = (*IndexService)(nil)
)

// DefaultEmbedBatchSize is the number of chunks sent per EmbedBatch call.
const DefaultEmbedBatchSize = 32

// IndexService owns the embedding index.
//
// A build embeds every chunk into a new snapshot and then publishes it with
// a single atomic swap, so queries never observe a half-built index. Builds
// and loads are serialised; queries take no lock.
type IndexService struct {
	embedder  driven.EmbeddingService
	store     driven.IndexStore
	batchSize int
	now       func() time.Time

	buildMu sync.Mutex
	current atomic.Pointer[domain.IndexSnapshot]
}

// NewIndexService creates an index service.
// The store may be nil when persistence is not needed.
func NewIndexService(embedder driven.EmbeddingService, store driven.IndexStore) *IndexService {
	return &IndexService{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultEmbedBatchSize,
		now:       time.Now,
	}
}

// SetBatchSize sets how many chunks are embedded per provider call.
func (s *IndexService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Info describes the published index.
func (s *IndexService) Info() domain.IndexInfo {
	return s.current.Load().Info()
}

func (s *IndexService) snapshot() *domain.IndexSnapshot {
	return s.current.Load()
}

// Build embeds chunks and publishes them as the new index.
func (s *IndexService) Build(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to index", domain.ErrEmptyInput)
	}
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	logger.Section("Index Build")
	logger.Debug("Embedding %d chunks with %s (batch %d)", len(chunks), s.embedder.ModelName(), s.batchSize)

	entries := make([]domain.IndexEntry, 0, len(chunks))
	dims := 0

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d chunks",
				domain.ErrEmbeddingProvider, len(vectors), len(batch))
		}

		for i, v := range vectors {
			if dims == 0 {
				dims = len(v)
			}
			if len(v) == 0 || len(v) != dims {
				return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
					domain.ErrEmbeddingProvider, start+i, len(v), dims)
			}
			entries = append(entries, domain.IndexEntry{
				Chunk:  copyChunk(batch[i]),
				Vector: v,
			})
		}
		logger.Debug("Embedded chunks %d-%d", start, end-1)
	}

	snap := &domain.IndexSnapshot{
		Model:      s.embedder.ModelName(),
		Dimensions: dims,
		BuiltAt:    s.now().UTC(),
		Entries:    entries,
	}
	s.current.Store(snap)

	logger.With("model", snap.Model, "dimensions", dims).Info("index built", "chunks", len(entries))
	return nil
}

// Query embeds the question and returns the k most similar chunks, best
// first. Equal scores keep their original chunk order.
func (s *IndexService) Query(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfiguration, k)
	}

	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrUninitializedIndex
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if model := s.embedder.ModelName(); model != snap.Model {
		return nil, fmt.Errorf("%w: index was built with %q but queries use %q",
			domain.ErrInvalidConfiguration, snap.Model, model)
	}

	logger.Section("Retrieval")
	logger.Debug("Question: %q, k=%d, index size=%d", question, k, snap.Len())

	qv, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(qv) != snap.Dimensions {
		return nil, fmt.Errorf("%w: question embedding has %d dimensions, index has %d",
			domain.ErrEmbeddingProvider, len(qv), snap.Dimensions)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(snap.Entries))
	for i, e := range snap.Entries {
		scores[i] = scored{idx: i, score: cosine(qv, e.Vector)}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	n := min(k, len(scores))
	results := make([]domain.RetrievedChunk, n)
	for rank := 0; rank < n; rank++ {
		entry := snap.Entries[scores[rank].idx]
		results[rank] = domain.RetrievedChunk{
			Chunk: copyChunk(entry.Chunk),
			Score: scores[rank].score,
			Rank:  rank + 1,
		}
		logger.Debug("  #%d score=%.4f position=%d", rank+1, scores[rank].score, entry.Chunk.Position)
	}

	return results, nil
}

// Retrieve implements driving.Retriever.
func (s *IndexService) Retrieve(ctx context.Context, text string, k int) ([]domain.RetrievedChunk, error) {
	return s.Query(ctx, text, k)
}

// Save persists the published index to location.
func (s *IndexService) Save(ctx context.Context, location string) error {
	snap := s.current.Load()
	if snap == nil {
		return domain.ErrUninitializedIndex
	}
	if s.store == nil {
		return fmt.Errorf("%w: no index store configured", domain.ErrStorage)
	}
	if err := s.store.Save(ctx, location, snap); err != nil {
		return err
	}
	logger.Debug("Saved index (%d chunks) to %s", snap.Len(), location)
	return nil
}

// Load replaces the published index with the one stored at location.
// The current index is kept if the stored one is missing or invalid.
func (s *IndexService) Load(ctx context.Context, location string) error {
	if s.store == nil {
		return fmt.Errorf("%w: no index store configured", domain.ErrStorage)
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	snap, err := s.store.Load(ctx, location)
	if err != nil {
		return err
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	s.current.Store(snap)
	logger.Debug("Loaded index (%d chunks, model %s) from %s", snap.Len(), snap.Model, location)
	return nil
}

func validateSnapshot(snap *domain.IndexSnapshot) error {
	if snap == nil || len(snap.Entries) == 0 {
		return fmt.Errorf("%w: stored index is empty", domain.ErrStorage)
	}
	for i, e := range snap.Entries {
		if len(e.Vector) != snap.Dimensions {
			return fmt.Errorf("%w: entry %d has %d dimensions, header says %d",
				domain.ErrStorage, i, len(e.Vector), snap.Dimensions)
		}
	}
	return nil
}

func copyChunk(c domain.Chunk) domain.Chunk {
	c.Metadata = maps.Clone(c.Metadata)
	return c
}

// cosine returns the cosine similarity of a and b, or 0 if either is zero.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
