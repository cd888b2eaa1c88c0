package domain

import "time"

// InsufficientContextAnswer is returned instead of calling the generation
// provider when retrieval produced no usable context.
const InsufficientContextAnswer = "I could not find this in the provided documents."

// QARecord is one entry of the question/answer history.
// Records are append-only and never mutated.
type QARecord struct {
	ID        int64
	Question  string
	Answer    string
	Timestamp time.Time
}

// Answer is the result of asking a question.
type Answer struct {
	// Question is the normalised question text.
	Question string

	// Text is the generated answer.
	Text string

	// Sources are the retrieved chunks the context was built from.
	Sources []RetrievedChunk

	// Context is the composed context passed to the generator.
	Context string

	// Record is the history entry, nil when logging failed.
	Record *QARecord

	// LogErr reports a failed history append. The answer is still valid.
	LogErr error
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// Documents lists the files that were extracted.
	Documents []string

	// Pages is the total number of pages read.
	Pages int

	// Chunks is the number of chunks indexed.
	Chunks int

	// IndexPath is where the index was saved, empty if not persisted.
	IndexPath string

	// Duration is the wall time of the run.
	Duration time.Duration
}
