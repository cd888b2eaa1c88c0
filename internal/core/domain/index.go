package domain

import "time"

// IndexEntry pairs a chunk with its embedding vector.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// IndexSnapshot is an immutable, fully built embedding index.
// Once published it is never modified; rebuilding produces a new snapshot.
type IndexSnapshot struct {
	// Model is the embedding model that produced the vectors.
	// Queries must be embedded with the same model.
	Model string

	// Dimensions is the length of every vector in Entries.
	Dimensions int

	// BuiltAt is when the snapshot was built.
	BuiltAt time.Time

	// Entries holds the indexed chunks in position order.
	Entries []IndexEntry
}

// Len returns the number of indexed chunks.
func (s *IndexSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// IndexInfo describes a published index without its entries.
type IndexInfo struct {
	Ready      bool
	Model      string
	Dimensions int
	Chunks     int
	BuiltAt    time.Time
}

// Info summarises s. A nil snapshot reports an index that is not ready.
func (s *IndexSnapshot) Info() IndexInfo {
	if s == nil {
		return IndexInfo{}
	}
	return IndexInfo{
		Ready:      true,
		Model:      s.Model,
		Dimensions: s.Dimensions,
		Chunks:     len(s.Entries),
		BuiltAt:    s.BuiltAt,
	}
}

// RetrievedChunk is a query result: a copy of an indexed chunk with its score.
type RetrievedChunk struct {
	// Chunk is a copy of the indexed chunk.
	Chunk Chunk

	// Score is the cosine similarity to the question, higher is closer.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int
}
